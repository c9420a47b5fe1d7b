// Package swarm runs lightweight agents on top of chat completion models.
//
// An Agent pairs instructions with a set of AgentFunction tools. Swarm.Run
// sends the conversation to the model, executes the tool calls it asks for
// and feeds the results back until the model answers in plain text. A tool
// may return another *Agent to hand the conversation over, or a *Result to
// update the context variables shared by instructions and tools.
//
// Models are reached through the OpenAIClient interface. NewClient builds
// one for OpenAI, Azure OpenAI (API key or Entra ID) or an Ollama server
// from a Config, usually loaded with LoadConfig.
//
// Subpackages provide the tools and wiring around the runtime: finder
// searches the filesystem for similarly named files, search queries vector
// stores, graph drives agents through a state graph and agents holds the
// example agents of the swarm-tools command.
package swarm
