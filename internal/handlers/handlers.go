// Package handlers implements Tool Handlers (C14): one thin façade per
// capability, each a pure adapter between Execution's normalized call
// shape and whatever collaborator actually does the work (spec.md §4.14).
// None of these carry business logic of their own — Understanding,
// Authorization, and Decision have already done the hard part by the time
// a handler runs; a handler only translates params into a call and a
// result back into pipeline.HandlerResult.
package handlers

import (
	"cogcore/internal/capability"
	"cogcore/internal/knowledge"
	"cogcore/internal/llm"
	"cogcore/internal/memory"
	"cogcore/internal/telemetry"
)

// Deps bundles the collaborators handlers are bound against. It exists so
// registration is one call (Register) instead of threading each
// collaborator through every BindHandler call site.
type Deps struct {
	Memory       *memory.Access
	Knowledge    *knowledge.Service
	Conversation llm.Provider
	ChatModel    string
	Log          telemetry.Logger

	// EnableTruthResolver mirrors config.FeatureFlags.EnableTruthResolver.
	// When set, searchKnowledge checks the durable-store rung of the
	// truth-priority ladder (an exact preference match) before falling
	// through to vector retrieval + synthesis.
	EnableTruthResolver bool
}

// Register binds every capability handler this package provides into reg.
// Capabilities absent from reg are silently skipped: a deployment may run
// a registry subset (e.g. a test fixture) without binding every handler.
func Register(reg *capability.Registry, deps Deps) error {
	if deps.Log == nil {
		deps.Log = telemetry.NoopLogger{}
	}
	h := &handlerSet{deps: deps}

	bindings := map[string]capability.HandlerFunc{
		"create_task":         h.createTask,
		"list_tasks":          h.listTasks,
		"register_goal":       h.registerGoal,
		"goal_setting_continue": h.goalSettingContinue,
		"search_knowledge":    h.searchKnowledge,
		"send_message":        h.sendMessage,
		"set_preference":      h.setPreference,
		"general_conversation": h.generalConversation,
		"announcement_continue": h.announcementContinue,
		"task_detail":           h.taskDetail,
	}

	for name, fn := range bindings {
		if _, ok := reg.Get(name); !ok {
			continue
		}
		if err := reg.BindHandler(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// handlerSet carries the shared Deps each handler method closes over.
type handlerSet struct {
	deps Deps
}
