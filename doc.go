// Package cogs provides the core types for building tool-calling agents on
// top of streaming large-language-model transports.
//
// The root package defines the shared vocabulary: conversation [Message]
// values, [Tool] definitions with [ToolCall] / [ToolResult] pairs, the
// finalized [Response] of one request/response cycle, and the [Transport]
// contract that delivers a model's output as a sequence of [StreamChunk]
// values.
//
// Higher-level behavior lives in subpackages:
//
//   - engine: decodes streamed chunks into structured tool calls for the
//     three supported model output encodings (native function-calling deltas,
//     inline markup, and a single streamed JSON envelope).
//   - event: the append-only event stream that records everything observable
//     in a session.
//   - tool: the tool registry and typed handler registration.
//   - agent: the loop runner that iterates request -> decode -> execute until
//     the model produces a final answer.
//   - transport/openai, transport/anthropic, transport/google: concrete
//     Transport implementations over the provider SDKs.
//
// # Quick Start
//
//	registry := tool.NewRegistry()
//	tool.MustRegisterFunc(registry, "get_weather", "Get current weather",
//	    func(ctx context.Context, args WeatherArgs) (string, error) {
//	        return lookupWeather(args.Location)
//	    },
//	)
//
//	runner := agent.New(openai.New(apiKey), registry,
//	    agent.WithModel("gpt-4.1"),
//	    agent.WithMaxIterations(5),
//	)
//	final, err := runner.Execute(ctx, cogs.NewUserMessage("What's the weather in Oslo?"))
package cogs
