package rerank

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/wjteo/rankrouter/internal/data"
	"github.com/wjteo/rankrouter/internal/tokenizer"
)

const (
	DefaultWindowSize = 20
	DefaultStepSize   = 10

	// basePassageTokens is the per-passage budget at the default window
	// size; smaller windows leave room for longer passages.
	basePassageTokens = 300

	rankingMethod = "rank_gpt"
)

// CompletionClient is the slice of the router client the reranker needs.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	Model() string
	ContextSize() int
}

// Reranker orders candidate passages by relevance to a query using listwise
// prompting over a sliding window.
type Reranker struct {
	Client     CompletionClient
	WindowSize int
	StepSize   int

	// PopulateInvocations records every model call on the returned results.
	PopulateInvocations bool
}

func NewReranker(client CompletionClient) *Reranker {
	return &Reranker{
		Client:     client,
		WindowSize: DefaultWindowSize,
		StepSize:   DefaultStepSize,
	}
}

// RerankBatch processes requests sequentially and returns one result per
// request, candidates in ranked order.
func (r *Reranker) RerankBatch(ctx context.Context, requests []data.Request) ([]data.Result, error) {
	results := make([]data.Result, 0, len(requests))
	for i, req := range requests {
		result, err := r.Rerank(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("reranking request %d (qid %s): %w", i, req.Query.QID, err)
		}
		results = append(results, result)
		log.Info().
			Str("qid", req.Query.QID).
			Int("candidates", len(req.Candidates)).
			Int("done", i+1).
			Int("total", len(requests)).
			Msg("request reranked")
	}
	return results, nil
}

// Rerank orders the candidates of a single request. The window sweep starts
// at the bottom of the list and slides upward by StepSize so that promising
// low-ranked candidates can bubble all the way to the top.
func (r *Reranker) Rerank(ctx context.Context, req data.Request) (data.Result, error) {
	if err := req.Validate(); err != nil {
		return data.Result{}, err
	}

	result := data.Result{
		Query:      req.Query,
		Candidates: make([]data.Candidate, len(req.Candidates)),
	}
	copy(result.Candidates, req.Candidates)

	n := len(result.Candidates)
	if n < 2 {
		return result, nil
	}

	window := r.WindowSize
	if window <= 0 {
		window = DefaultWindowSize
	}
	if window > n {
		window = n
	}
	step := r.StepSize
	if step <= 0 {
		step = DefaultStepSize
	}

	endPos := n
	startPos := n - window
	for endPos > 0 && startPos+step != 0 {
		if startPos < 0 {
			startPos = 0
		}

		invocation, err := r.rankWindow(ctx, req.Query.Text, result.Candidates, startPos, endPos)
		if err != nil {
			return data.Result{}, err
		}
		if r.PopulateInvocations {
			result.InvocationsHistory = append(result.InvocationsHistory, invocation)
		}

		endPos -= step
		startPos -= step
	}

	return result, nil
}

// rankWindow runs one listwise inference over candidates[start:end) and
// reorders that slice in place according to the returned permutation.
func (r *Reranker) rankWindow(ctx context.Context, query string, candidates []data.Candidate, start, end int) (data.InferenceInvocation, error) {
	model := r.Client.Model()
	windowLen := end - start

	budget := basePassageTokens
	if r.WindowSize > 0 && windowLen > 0 {
		budget = basePassageTokens * r.WindowSize / windowLen
	}

	texts := make([]string, 0, windowLen)
	for _, candidate := range candidates[start:end] {
		texts = append(texts, strings.Join(strings.Fields(candidate.Text()), " "))
	}

	maxTokens := outputTokenEstimate(model, windowLen)
	messages := buildWindowMessages(query, truncateAll(model, texts, budget))

	// Halve the per-passage budget until the prompt plus the permutation
	// answer fits the model's context window.
	contextSize := r.Client.ContextSize()
	for contextSize > 0 && budget > 1 &&
		countMessageTokens(model, messages)+maxTokens > contextSize {
		budget /= 2
		messages = buildWindowMessages(query, truncateAll(model, texts, budget))
	}

	resp, err := r.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return data.InferenceInvocation{}, err
	}
	if len(resp.Choices) == 0 {
		return data.InferenceInvocation{}, fmt.Errorf("received an empty response from API")
	}

	permutation := resp.Choices[0].Message.Content
	applyPermutation(candidates, start, end, parsePermutation(permutation, windowLen))

	inputTokens := resp.Usage.PromptTokens
	if inputTokens == 0 {
		inputTokens = countMessageTokens(model, messages)
	}
	outputTokens := resp.Usage.CompletionTokens
	if outputTokens == 0 {
		outputTokens = tokenizer.CountTokens(model, permutation)
	}

	return data.InferenceInvocation{
		ID:           uuid.NewString(),
		Method:       rankingMethod,
		Prompt:       flattenMessages(messages),
		Response:     permutation,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}, nil
}

func truncateAll(model string, texts []string, budget int) []string {
	passages := make([]string, len(texts))
	for i, text := range texts {
		passages[i] = tokenizer.Truncate(model, text, budget)
	}
	return passages
}

// parsePermutation extracts a zero-based ordering from a model response such
// as "[2] > [1] > [3]". Non-digit noise is ignored, duplicate and
// out-of-range identifiers are dropped, and any missing identifiers are
// appended in their original order.
func parsePermutation(response string, windowLen int) []int {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, response)

	seen := make(map[int]bool, windowLen)
	order := make([]int, 0, windowLen)
	for _, field := range strings.Fields(cleaned) {
		n, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		idx := n - 1
		if idx < 0 || idx >= windowLen || seen[idx] {
			continue
		}
		seen[idx] = true
		order = append(order, idx)
	}

	for i := 0; i < windowLen; i++ {
		if !seen[i] {
			order = append(order, i)
		}
	}

	return order
}

// applyPermutation reorders candidates[start:end) according to order. The
// original score sequence stays attached to the positions, keeping scores
// descending down the ranked list.
func applyPermutation(candidates []data.Candidate, start, end int, order []int) {
	window := make([]data.Candidate, end-start)
	copy(window, candidates[start:end])

	for i, from := range order {
		score := candidates[start+i].Score
		candidates[start+i] = window[from]
		candidates[start+i].Score = score
	}
}
