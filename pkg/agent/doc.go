// Package agent runs a single LLM agent through its completion loop:
// it sends the prompt, executes any tool calls the model requests via
// toolexecutor, and feeds the results back until the model produces a
// final answer.
//
// Conversation history is passed in by the caller, never loaded here.
// Auth profiles fail over in priority order, and a failing profile
// cools down before it is tried again.
//
//	runner, _ := agent.NewRunner(agent.Config{...})
//	result, _ := runner.RunWithContext(ctx, agent.AgentRunParams{
//		Prompt:         "Am I eligible for VGLI-250?",
//		ConversationID: "conv_1",
//		Config:         agent.DefaultConfig(),
//	})
package agent
