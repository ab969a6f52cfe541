package rag

import (
	"fmt"
	"strings"

	"medichat/internal/models"
)

// systemPrompt fixes the behavioral contract with the generator: answer only
// from the supplied context, admit insufficiency, stay short and plain, and
// close with the educational disclaimer. The generator is trusted to comply;
// no verification pass runs over its output.
const systemPrompt = "You are a knowledgeable and helpful medical assistant designed to answer health-related questions. " +
	"Your role is to provide accurate, evidence-based information from the medical context provided to you.\n\n" +
	"Guidelines:\n" +
	"1. Use ONLY the information from the retrieved context below to answer questions\n" +
	"2. If the context doesn't contain relevant information, clearly state: 'I don't have enough information in my knowledge base to answer that question accurately.'\n" +
	"3. Keep responses concise (3-5 sentences maximum) unless more detail is specifically requested\n" +
	"4. Use clear, simple language that patients can understand\n" +
	"5. Always remind users that this information is educational and not a substitute for professional medical advice\n\n" +
	"Context from medical documents:\n%s\n\n" +
	"Remember: Provide helpful information while emphasizing the importance of consulting healthcare professionals " +
	"for personalized medical advice, diagnosis, or treatment."

// renderSystemPrompt fills the context section with the retrieved passages.
func renderSystemPrompt(passages []models.Passage) string {
	if len(passages) == 0 {
		return fmt.Sprintf(systemPrompt, "(no relevant documents found)")
	}
	var sb strings.Builder
	for i, p := range passages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(p.Content)
		if p.Source != "" {
			sb.WriteString(fmt.Sprintf("\n(Source: %s)", p.Source))
		}
	}
	return fmt.Sprintf(systemPrompt, sb.String())
}
