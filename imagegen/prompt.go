// Package imagegen implements the multi-provider image generation engine.
//
// prompt.go implements the prompt sanitizer: content moderation, boilerplate
// stripping, length capping, and style annotation. The sanitizer never fails;
// it always produces a usable enhanced prompt.
package imagegen

import (
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"imageservice/logging"
)

// MaxCleanPromptLen is the hard cap on the cleaned prompt before the style
// suffix is appended. Public generation endpoints reject or mangle prompts
// beyond this length.
const MaxCleanPromptLen = 200

// qualityMarker is the constant clause appended after the style descriptor.
const qualityMarker = "professional quality"

// PromptPolicy holds the moderation and cleanup rules applied to raw prompts.
// The zero value is unusable; start from DefaultPromptPolicy or LoadPromptPolicy.
type PromptPolicy struct {
	// SensitivePhrases are matched case-insensitively as substrings against
	// the raw prompt. Any match replaces the entire prompt with Placeholder.
	SensitivePhrases []string `yaml:"sensitive_phrases"`

	// BoilerplatePhrases are instructional fragments removed from prompts
	// before generation, matched case-insensitively.
	BoilerplatePhrases []string `yaml:"boilerplate_phrases"`

	// Placeholder replaces the whole prompt when moderation triggers.
	Placeholder string `yaml:"placeholder"`

	// EmptyDefault is used when cleaning leaves nothing of the prompt.
	EmptyDefault string `yaml:"empty_default"`

	// StyleDescriptors maps each style to its descriptor clause.
	StyleDescriptors map[Style]string `yaml:"style_descriptors"`
}

// DefaultPromptPolicy returns the built-in moderation and cleanup rules.
func DefaultPromptPolicy() PromptPolicy {
	return PromptPolicy{
		SensitivePhrases: []string{
			"jeffrey epstein",
			"school shooting",
			"terrorist attack",
			"graphic violence",
			"self harm",
			"child abuse",
			"nazi propaganda",
			"explicit content",
		},
		BoilerplatePhrases: []string{
			"vibrant and illustrative visual that represents the core idea of:",
			"the style should be educational and visually appealing",
			"like a modern textbook illustration",
			"avoid text in the image",
			"image should be",
			"create an image",
			"generate a picture",
		},
		Placeholder:  "educational concept illustration, learning and knowledge",
		EmptyDefault: "abstract educational illustration",
		StyleDescriptors: map[Style]string{
			StyleEducational: "clear, informative, diagram-style",
			StyleRealistic:   "photorealistic, detailed, high resolution",
			StyleArtistic:    "artistic, creative, visually appealing",
			StyleScientific:  "scientific illustration, precise, technical",
		},
	}
}

// LoadPromptPolicy reads a YAML policy file and merges it over the defaults.
// Fields absent from the file keep their default values, so operators can
// override just the sensitive phrase list. Returns an error on unreadable
// or malformed YAML.
func LoadPromptPolicy(path string) (PromptPolicy, error) {
	policy := DefaultPromptPolicy()

	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("imagegen: failed to read prompt policy: %w", err)
	}

	var override PromptPolicy
	if err := yaml.Unmarshal(data, &override); err != nil {
		return policy, fmt.Errorf("imagegen: failed to parse prompt policy: %w", err)
	}

	if len(override.SensitivePhrases) > 0 {
		policy.SensitivePhrases = override.SensitivePhrases
	}
	if len(override.BoilerplatePhrases) > 0 {
		policy.BoilerplatePhrases = override.BoilerplatePhrases
	}
	if override.Placeholder != "" {
		policy.Placeholder = override.Placeholder
	}
	if override.EmptyDefault != "" {
		policy.EmptyDefault = override.EmptyDefault
	}
	if len(override.StyleDescriptors) > 0 {
		for style, desc := range override.StyleDescriptors {
			policy.StyleDescriptors[style] = desc
		}
	}

	return policy, nil
}

// Sanitizer turns a raw GenerationRequest into an enhanced prompt: moderated,
// boilerplate-stripped, length-capped, and annotated with a style suffix.
//
// Thread Safety: Sanitizer is immutable after construction and safe for
// concurrent use.
type Sanitizer struct {
	policy PromptPolicy
	logger *logging.Logger
}

// NewSanitizer creates a Sanitizer with the given policy.
func NewSanitizer(policy PromptPolicy, logger *logging.Logger) (*Sanitizer, error) {
	if logger == nil {
		return nil, fmt.Errorf("imagegen: logger cannot be nil")
	}
	if policy.Placeholder == "" || len(policy.StyleDescriptors) == 0 {
		return nil, fmt.Errorf("imagegen: prompt policy is incomplete")
	}
	return &Sanitizer{
		policy: policy,
		logger: logger.Named("sanitizer"),
	}, nil
}

// Enhance computes the enhanced prompt for a request.
//
// Processing order:
//  1. Moderation: any sensitive phrase match replaces the whole prompt with
//     the neutral placeholder. Deliberately blunt; a partial match discards
//     the entire user prompt.
//  2. Boilerplate stripping, quote trimming, whitespace collapsing.
//  3. Hard truncation to MaxCleanPromptLen characters.
//  4. Style descriptor and quality marker suffix.
//
// Enhance never fails and always returns a non-empty string. The same
// enhanced prompt is reused across every adapter attempt for the request.
func (s *Sanitizer) Enhance(req GenerationRequest) string {
	prompt := req.RawPrompt

	if phrase, hit := s.matchSensitive(prompt); hit {
		s.logger.Warn("moderation replaced prompt",
			zap.String("matched_phrase", phrase),
			zap.String("prompt_preview", truncateText(prompt, 50)))
		prompt = s.policy.Placeholder
	} else {
		prompt = s.clean(prompt)
		if prompt == "" {
			prompt = s.policy.EmptyDefault
		}
	}

	prompt = truncateBytes(prompt, MaxCleanPromptLen)

	style := req.Style
	if style == "" {
		style = StyleEducational
	}
	descriptor, ok := s.policy.StyleDescriptors[style]
	if !ok {
		descriptor = s.policy.StyleDescriptors[StyleEducational]
	}

	return fmt.Sprintf("%s, %s, %s", prompt, descriptor, qualityMarker)
}

// matchSensitive returns the first sensitive phrase found in the prompt.
func (s *Sanitizer) matchSensitive(prompt string) (string, bool) {
	for _, phrase := range s.policy.SensitivePhrases {
		if containsFold(prompt, phrase) {
			return phrase, true
		}
	}
	return "", false
}

// clean strips boilerplate phrases and quote characters, then collapses
// whitespace.
func (s *Sanitizer) clean(prompt string) string {
	for _, phrase := range s.policy.BoilerplatePhrases {
		prompt = removeFold(prompt, phrase)
	}
	prompt = strings.NewReplacer(`"`, "", "“", "", "”", "").Replace(prompt)
	return collapseWhitespace(prompt)
}

// removeFold removes every case-insensitive occurrence of phrase from s.
// Matching is rune-wise; case folding can change a rune's encoded length,
// so byte offsets from a lowered copy of s cannot be trusted.
func removeFold(s, phrase string) string {
	if phrase == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if n := foldPrefixLen(s[i:], phrase); n > 0 {
			i += n
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		b.WriteString(s[i : i+size])
		i += size
	}
	return b.String()
}

// foldPrefixLen returns the byte length of a case-insensitive occurrence of
// phrase at the start of s, or 0 when s does not start with phrase.
func foldPrefixLen(s, phrase string) int {
	n := 0
	for _, pr := range phrase {
		sr, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 || unicode.ToLower(sr) != unicode.ToLower(pr) {
			return 0
		}
		n += size
	}
	return n
}

// Policy returns the sanitizer's policy.
func (s *Sanitizer) Policy() PromptPolicy {
	return s.policy
}
