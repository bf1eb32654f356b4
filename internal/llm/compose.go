package llm

import "context"

// composite routes generation calls to one provider and embedding
// calls to another. Prompt construction and message cleaning follow
// the generation side since its input budget governs what is sent to
// the chat API.
type composite struct {
	generation Provider
	embedding  Provider
}

// Compose returns a Provider that generates with generation and embeds
// with embedding. When both are the same value it is returned as is.
func Compose(generation, embedding Provider) Provider {
	if generation == embedding {
		return generation
	}
	return &composite{generation: generation, embedding: embedding}
}

func (c *composite) SetGenerationModel(modelID string) error {
	return c.generation.SetGenerationModel(modelID)
}

func (c *composite) SetEmbeddingModel(modelID string, embeddingSize int) error {
	return c.embedding.SetEmbeddingModel(modelID, embeddingSize)
}

func (c *composite) GenerateText(ctx context.Context, prompt string, history []Message, opts ...GenerateOption) (string, error) {
	return c.generation.GenerateText(ctx, prompt, history, opts...)
}

func (c *composite) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return c.embedding.EmbedText(ctx, text)
}

func (c *composite) ConstructPrompt(role, content, fullPrompt string) Message {
	return c.generation.ConstructPrompt(role, content, fullPrompt)
}

func (c *composite) CleanMessages(messages []Message) []Message {
	return c.generation.CleanMessages(messages)
}
