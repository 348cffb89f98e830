package prompt

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	MinScenes = 1
	MaxScenes = 12
)

// BuildRequest carries the story idea to expand into per-scene prompts.
type BuildRequest struct {
	Story          string
	Style          string
	IdentityAnchor string
	SceneCount     int
	Locale         string
}

// ScenePrompt is one ordered unit of the generated storyboard plan.
type ScenePrompt struct {
	Index  int
	Title  string
	Prompt string
}

// BuildScenes splits a story idea into an ordered list of scene prompts.
// Sentences are distributed across the requested scene count; the style and
// identity anchor are appended verbatim to every prompt so downstream
// generation calls stay visually consistent.
func BuildScenes(req BuildRequest) []ScenePrompt {
	count := req.SceneCount
	if count < MinScenes {
		count = MinScenes
	}
	if count > MaxScenes {
		count = MaxScenes
	}

	sentences := splitSentences(req.Story)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(req.Story)}
	}
	if count > len(sentences) {
		count = len(sentences)
	}
	if count < MinScenes {
		count = MinScenes
	}

	titler := cases.Title(matchLanguage(req.Locale))
	scenes := make([]ScenePrompt, 0, count)
	perScene := (len(sentences) + count - 1) / count
	for i := 0; i < count; i++ {
		start := i * perScene
		end := start + perScene
		if end > len(sentences) {
			end = len(sentences)
		}
		if start >= end {
			break
		}
		body := strings.Join(sentences[start:end], " ")
		scenes = append(scenes, ScenePrompt{
			Index:  i,
			Title:  titler.String(firstWords(body, 6)),
			Prompt: body,
		})
	}
	return scenes
}

func splitSentences(story string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range strings.TrimSpace(story) {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func firstWords(s string, n int) string {
	words := strings.Fields(strings.Trim(s, ".!? "))
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func matchLanguage(locale string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return language.Und
	}
	return tag
}
