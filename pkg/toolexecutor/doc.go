// Package toolexecutor registers and runs the structured tools the agent
// crew calls during a chat turn: member lookups, premium quotes,
// eligibility checks and knowledge search.
//
// Tool names are unique, parameters are schema-validated before the
// handler runs, and every execution carries an ExecutionContext with the
// member and conversation identity. Agent tool policies can restrict
// which tools a given agent may call.
//
//	exec := toolexecutor.New()
//	_ = exec.RegisterTool(toolexecutor.ToolDefinition{
//		Name:        "get_member_profile",
//		Description: "Fetch a member's profile by member number",
//		Parameters:  []toolexecutor.ToolParameter{{Name: "member_number", Type: "string", Required: true}},
//		Handler:     lookupProfile,
//	})
package toolexecutor
