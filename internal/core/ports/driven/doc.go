// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - GraphStore: Read access to the Work/Expression/Article/Paragraph graph
//   - ConfigStore: Application configuration
//   - PromptStore: Prompt templates for generation and judging
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Query embeddings. Without it, retrieval is keyword-only.
//   - LLMService: Answer generation. Without it, every answer is the
//     insufficient-information response.
//   - FaithfulnessScorer: Guardrail scoring. Defaults to an always-pass stub.
//   - AnswerMetrics: Outcome counters and histograms.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
