package rerank

import (
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wjteo/rankrouter/internal/tokenizer"
)

const rankerSystemPrompt = "You are RankGPT, an intelligent assistant that can rank passages " +
	"based on their relevancy to the query."

// buildWindowMessages assembles the listwise ranking conversation for one
// window: an instruction, the passages fed one at a time with acknowledgement
// turns, and the final request for a permutation of identifiers.
func buildWindowMessages(query string, passages []string) []openai.ChatCompletionMessage {
	num := len(passages)

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: rankerSystemPrompt,
		},
		{
			Role: openai.ChatMessageRoleUser,
			Content: fmt.Sprintf("I will provide you with %d passages, each indicated by "+
				"number identifier []. Rank the passages based on their relevance to query: %s.",
				num, query),
		},
		{
			Role:    openai.ChatMessageRoleAssistant,
			Content: "Okay, please provide the passages.",
		},
	}

	for i, passage := range passages {
		messages = append(messages,
			openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("[%d] %s", i+1, passage),
			},
			openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: fmt.Sprintf("Received passage [%d].", i+1),
			},
		)
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		Content: fmt.Sprintf("Search Query: %s. Rank the %d passages above based on their "+
			"relevance to the search query. The passages should be listed in descending order "+
			"using identifiers. The most relevant passages should be listed first. The output "+
			"format should be [] > [], e.g., [1] > [2]. Only response the ranking results, "+
			"do not say any word or explain.", query, num),
	})

	return messages
}

// outputTokenEstimate returns the token budget for a full permutation answer
// over windowLen passages, e.g. "[1] > [2] > ... > [n]".
func outputTokenEstimate(model string, windowLen int) int {
	parts := make([]string, windowLen)
	for i := range parts {
		parts[i] = fmt.Sprintf("[%d]", i+1)
	}
	return tokenizer.CountTokens(model, strings.Join(parts, " > "))
}

// countMessageTokens approximates the prompt cost of a message list. Each
// message carries a small framing overhead on top of its content, and the
// reply is primed with a few more.
func countMessageTokens(model string, messages []openai.ChatCompletionMessage) int {
	const tokensPerMessage = 4
	total := 3
	for _, m := range messages {
		total += tokensPerMessage + tokenizer.CountTokens(model, m.Content)
	}
	return total
}

// flattenMessages renders a message list as plain text for invocation
// history records.
func flattenMessages(messages []openai.ChatCompletionMessage) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return b.String()
}
