package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/pai-feedback/internal/feedback"
)

// Label is the sentiment assigned to a comment.
type Label string

const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
	Mixed    Label = "mixed"
)

// ErrInvalidReply is returned when a provider reply does not match the
// classification schema.
var ErrInvalidReply = errors.New("invalid classification reply")

const defaultMaxComments = 200

const replySchema = `{
  "type": "object",
  "required": ["overall", "labels"],
  "properties": {
    "overall": {"enum": ["positive", "neutral", "negative", "mixed"]},
    "labels": {
      "type": "array",
      "items": {"enum": ["positive", "neutral", "negative"]}
    },
    "themes": {"type": "array", "items": {"type": "string"}, "maxItems": 10},
    "summary": {"type": "string"}
  }
}`

const systemPrompt = `You classify student feedback comments about a university course offering.
Reply with a single JSON object and nothing else:
{"overall": "positive|neutral|negative|mixed",
 "labels": ["positive|neutral|negative", ... one per comment, in order],
 "themes": ["short recurring theme", ...],
 "summary": "one or two sentences"}`

type reply struct {
	Overall Label    `json:"overall"`
	Labels  []Label  `json:"labels"`
	Themes  []string `json:"themes"`
	Summary string   `json:"summary"`
}

// LabeledComment pairs a comment with its label.
type LabeledComment struct {
	Text  string `json:"text"`
	Label Label  `json:"label"`
}

// Classification is the sentiment summary of one offering's comments.
type Classification struct {
	Offering feedback.OfferingKey `json:"offering"`
	Total    int                  `json:"total"`
	Positive int                  `json:"positive"`
	Neutral  int                  `json:"neutral"`
	Negative int                  `json:"negative"`
	Overall  Label                `json:"overall,omitempty"`
	Themes   []string             `json:"themes,omitempty"`
	Summary  string               `json:"summary,omitempty"`
	Comments []LabeledComment     `json:"comments,omitempty"`
	Model    string               `json:"model,omitempty"`
}

// Classifier sends an offering's comments to a Provider and validates the reply.
type Classifier struct {
	provider    Provider
	schema      *gojsonschema.Schema
	model       string
	maxComments int
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithModel pins the model requested from the provider.
func WithModel(model string) ClassifierOption {
	return func(c *Classifier) {
		c.model = model
	}
}

// WithMaxComments caps how many comments are sent in one request.
func WithMaxComments(n int) ClassifierOption {
	return func(c *Classifier) {
		if n > 0 {
			c.maxComments = n
		}
	}
}

// NewClassifier creates a classifier over provider.
func NewClassifier(provider Provider, opts ...ClassifierOption) (*Classifier, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(replySchema))
	if err != nil {
		return nil, fmt.Errorf("compile reply schema: %w", err)
	}
	c := &Classifier{
		provider:    provider,
		schema:      schema,
		maxComments: defaultMaxComments,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Classify labels the multi-word comments among rows. Offerings with no
// usable comment are returned empty without calling the provider.
func (c *Classifier) Classify(ctx context.Context, key feedback.OfferingKey, rows []feedback.ResponseRow) (Classification, error) {
	comments := feedback.Comments(rows)
	if len(comments) > c.maxComments {
		comments = comments[:c.maxComments]
	}
	out := Classification{Offering: key, Total: len(comments)}
	if len(comments) == 0 {
		return out, nil
	}

	resp, err := c.provider.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(key, comments)},
		},
		Model:       c.model,
		MaxTokens:   2048,
		Temperature: 0.1,
		JSON:        true,
	})
	if err != nil {
		return Classification{}, fmt.Errorf("classify %s: %w", key, err)
	}

	r, err := c.parse(resp.Content)
	if err != nil {
		return Classification{}, fmt.Errorf("classify %s: %w", key, err)
	}
	if len(r.Labels) != len(comments) {
		return Classification{}, fmt.Errorf("classify %s: %w: %d labels for %d comments",
			key, ErrInvalidReply, len(r.Labels), len(comments))
	}

	out.Overall = r.Overall
	out.Themes = r.Themes
	out.Summary = r.Summary
	out.Model = resp.Model
	out.Comments = make([]LabeledComment, len(comments))
	for i, text := range comments {
		label := r.Labels[i]
		out.Comments[i] = LabeledComment{Text: text, Label: label}
		switch label {
		case Positive:
			out.Positive++
		case Negative:
			out.Negative++
		default:
			out.Neutral++
		}
	}
	return out, nil
}

func (c *Classifier) parse(content string) (reply, error) {
	body := stripFence(content)

	result, err := c.schema.Validate(gojsonschema.NewStringLoader(body))
	if err != nil {
		return reply{}, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return reply{}, fmt.Errorf("%w: %s", ErrInvalidReply, strings.Join(msgs, "; "))
	}

	var r reply
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return reply{}, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	return r, nil
}

func userPrompt(key feedback.OfferingKey, comments []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\nLecturer: %s\n", key.CourseCode, key.StaffID)
	if key.AcademicYear != "" || key.Semester != "" {
		fmt.Fprintf(&b, "Session: %s semester %s\n", key.AcademicYear, key.Semester)
	}
	b.WriteString("Comments:\n")
	for i, c := range comments {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.ReplaceAll(c, "\n", " "))
	}
	return b.String()
}

// stripFence removes a Markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
