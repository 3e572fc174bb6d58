// Package writer holds the four generation tasks of the meme pipeline:
// summarization, caption+emoji, image prompt, and search keywords. Each is
// a single stateless call against an llm.Provider. Structured responses
// are parsed with defaults, never with a hard failure.
package writer

import (
	"context"
	"fmt"

	"github.com/roy0424/memenews/internal/llm"
)

const summarizeSystem = `당신은 뉴스를 간결하게 요약하는 전문가입니다. 핵심 내용을 한 문장으로 요약해주세요.`

const captionizeSystem = `당신은 뉴스를 재미있는 밈 스타일 문구로 변환하는 전문가입니다. 풍자적이고 위트있게, 그리고 한국 밈 문화에 맞게 작성해주세요. 반드시 JSON 형식으로 응답하세요.`

const imagePromptSystem = `당신은 뉴스를 사실적인 이미지로 표현하기 위한 영문 프롬프트를 작성하는 전문가입니다. 이미지만 보고도 무슨 뉴스인지 알 수 있도록 구체적이고 명확하게 작성하세요.`

const imagePromptUser = `다음 뉴스를 사실적인(photorealistic) 이미지로 표현하기 위한 영문 프롬프트를 작성해주세요.

중요 지침:
1. 뉴스에 등장하는 실제 인물이 있다면, 그 사람의 실명과 구체적인 외형 특징을 명확히 포함하세요 (예: "Elon Musk with characteristic appearance", "Donald Trump in his signature red tie")
2. 유명인이나 공인의 경우 AI 모델이 학습한 그들의 외형을 재현할 수 있도록 이름을 반드시 포함하세요
3. 주요 인물의 특징적인 헤어스타일, 복장, 표정 등을 구체적으로 묘사하세요
4. 뉴스의 핵심 상황과 배경을 명확히 표현하세요
5. 약간의 유머러스하거나 과장된 표현을 추가하세요
6. 텍스트나 글자는 절대 포함하지 마세요

뉴스: %s

영문 프롬프트만 출력하세요.`

const keywordsSystem = `Extract 3-5 keywords suitable for searching GIFs/memes. Respond in JSON format.`

// Caption is the structured caption+emoji output.
type Caption struct {
	Text   string
	Emojis []string
}

// Writer runs the generation tasks against one provider.
type Writer struct {
	provider llm.Provider
}

// New creates a Writer.
func New(provider llm.Provider) *Writer {
	return &Writer{provider: provider}
}

func (w *Writer) generate(ctx context.Context, system, user string, structured bool) (string, error) {
	if w.provider == nil {
		return "", fmt.Errorf("no LLM provider available")
	}
	return w.provider.Generate(ctx, system, user, structured)
}

// Summarize produces a one-sentence summary in the source language.
func (w *Writer) Summarize(ctx context.Context, content string) (string, error) {
	user := fmt.Sprintf("다음 뉴스를 한 문장으로 요약해주세요:\n\n%s", content)
	return w.generate(ctx, summarizeSystem, user, false)
}

// Captionize turns a summary into a meme caption with 3-5 emoji. Missing
// or malformed fields in the response default to empty.
func (w *Writer) Captionize(ctx context.Context, summary string) (Caption, error) {
	user := fmt.Sprintf(
		"다음 요약을 밈 스타일 문구로 만들고, 어울리는 이모지 3-5개를 추천해주세요.\n\n요약: %s\n\nJSON 형식으로 응답해주세요: { \"text\": \"밈 문구\", \"emojis\": [\"😂\", \"🔥\"] }",
		summary,
	)
	response, err := w.generate(ctx, captionizeSystem, user, true)
	if err != nil {
		return Caption{}, err
	}

	parsed := llm.ParseJSONResponse(response)
	return Caption{
		Text:   llm.GetString(parsed, "text", ""),
		Emojis: llm.GetStrings(parsed, "emojis"),
	}, nil
}

// ImagePrompt produces an English photorealistic image prompt from the
// full article content (not the summary, to preserve detail).
func (w *Writer) ImagePrompt(ctx context.Context, content string) (string, error) {
	return w.generate(ctx, imagePromptSystem, fmt.Sprintf(imagePromptUser, content), false)
}

// Keywords extracts 3-5 short search terms from a summary, defaulting to
// an empty list on malformed output.
func (w *Writer) Keywords(ctx context.Context, summary string) ([]string, error) {
	user := fmt.Sprintf("Extract keywords from: %s\n\nReturn as JSON: { \"keywords\": [\"keyword1\", \"keyword2\"] }", summary)
	response, err := w.generate(ctx, keywordsSystem, user, true)
	if err != nil {
		return nil, err
	}

	parsed := llm.ParseJSONResponse(response)
	return llm.GetStrings(parsed, "keywords"), nil
}
