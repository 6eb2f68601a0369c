package decode

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/jonwraymond/recipeops/observe"
)

const (
	// DefaultMaxCandidates bounds the prefixes tried by truncation recovery.
	DefaultMaxCandidates = 2048

	// DefaultPrefixLimit bounds the raw text kept on a DecodeError.
	DefaultPrefixLimit = 1000

	// MinCandidateLen is the shortest prefix truncation recovery will try.
	// A lone opener closes into an empty container.
	MinCandidateLen = 1
)

// Outcome tags how a value was recovered.
type Outcome int

const (
	// OutcomeClean means the trimmed input parsed as is.
	OutcomeClean Outcome = iota
	// OutcomeRepaired means the input parsed once the listed repairs were applied.
	OutcomeRepaired
	// OutcomeTruncated means only a shortened prefix of the input parsed.
	OutcomeTruncated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClean:
		return "clean"
	case OutcomeRepaired:
		return "repaired"
	case OutcomeTruncated:
		return "truncated"
	default:
		return "unknown"
	}
}

// Repair names a single transformation applied to the input.
type Repair string

const (
	RepairFence          Repair = "strip_fence"
	RepairTrailingComma  Repair = "trailing_comma"
	RepairCloseString    Repair = "close_string"
	RepairCloseStructure Repair = "close_structure"
	RepairTruncate       Repair = "truncate"
)

// Result is a recovered value.
type Result struct {
	// Value is the parsed JSON value as produced by encoding/json.
	Value any
	// Text is the exact text that parsed.
	Text    string
	Outcome Outcome
	Repairs []Repair
}

// Unmarshal decodes the recovered text into dst.
func (r Result) Unmarshal(dst any) error {
	return json.Unmarshal([]byte(r.Text), dst)
}

// Decoder runs the repair pipeline.
type Decoder struct {
	logger        observe.Logger
	metrics       observe.Metrics
	maxCandidates int
	prefixLimit   int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger logs repairs and failures to l.
func WithLogger(l observe.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics records one outcome per Decode call.
func WithMetrics(m observe.Metrics) Option {
	return func(d *Decoder) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithMaxCandidates bounds truncation recovery. Zero disables it.
func WithMaxCandidates(n int) Option {
	return func(d *Decoder) {
		if n >= 0 {
			d.maxCandidates = n
		}
	}
}

// WithPrefixLimit bounds DecodeError.Raw, in bytes.
func WithPrefixLimit(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.prefixLimit = n
		}
	}
}

// New creates a Decoder.
func New(opts ...Option) *Decoder {
	d := &Decoder{
		logger:        observe.NopLogger(),
		metrics:       observe.NopMetrics(),
		maxCandidates: DefaultMaxCandidates,
		prefixLimit:   DefaultPrefixLimit,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDecoder = New()

// Decode runs the default Decoder over raw.
func Decode(raw string) (Result, error) {
	return defaultDecoder.Decode(context.Background(), raw)
}

// Decode recovers a JSON value from raw. ctx only scopes logging.
func (d *Decoder) Decode(ctx context.Context, raw string) (Result, error) {
	res, ok, lastErr := d.run(raw)
	if !ok {
		derr := &DecodeError{
			Kind: KindMalformedPayload,
			Raw:  boundedPrefix(raw, d.prefixLimit),
			Err:  lastErr,
		}
		d.metrics.RecordDecode(ctx, "failed")
		d.logger.Error(ctx, "payload could not be decoded",
			observe.Field{Key: "error", Value: lastErr},
			observe.Field{Key: "raw_prefix", Value: derr.Raw},
		)
		return Result{}, derr
	}

	d.metrics.RecordDecode(ctx, res.Outcome.String())
	if res.Outcome != OutcomeClean {
		d.logger.Warn(ctx, "payload repaired",
			observe.Field{Key: "outcome", Value: res.Outcome.String()},
			observe.Field{Key: "repairs", Value: res.Repairs},
		)
	}
	return res, nil
}

// run applies the pipeline. On failure it returns the last parse error.
func (d *Decoder) run(raw string) (Result, bool, error) {
	text := strings.TrimSpace(raw)
	v, err := parse(text)
	if err == nil {
		return Result{Value: v, Text: text, Outcome: OutcomeClean}, true, nil
	}

	var repairs []Repair
	if s, ok := stripFence(text); ok {
		text = s
		repairs = append(repairs, RepairFence)
	}
	if s, ok := removeTrailingCommas(text); ok {
		text = s
		repairs = append(repairs, RepairTrailingComma)
	}

	body := text
	bodyRepairs := len(repairs)
	brackets, braces := balance(text)
	if brackets > 0 || braces > 0 {
		if hasOpenString(text) {
			text = closeString(text)
			repairs = append(repairs, RepairCloseString)
		}
		text = closeStructure(text, brackets, braces)
		repairs = append(repairs, RepairCloseStructure)
	}

	v, err = parse(text)
	if err == nil {
		return Result{Value: v, Text: text, Outcome: OutcomeRepaired, Repairs: repairs}, true, nil
	}

	if res, ok := d.truncate(body, brackets, braces); ok {
		res.Repairs = append(repairs[:bodyRepairs:bodyRepairs], RepairTruncate, RepairCloseStructure)
		return res, true, nil
	}
	return Result{}, false, err
}

// truncate tries prefixes of body from longest to shortest, closing each
// one. brackets and braces are the counts for the whole body and are
// adjusted as bytes are dropped.
func (d *Decoder) truncate(body string, brackets, braces int) (Result, bool) {
	tried := 0
	lastLen := -1
	for i := len(body) - 1; i >= MinCandidateLen && tried < d.maxCandidates; i-- {
		switch body[i] {
		case '[':
			brackets--
		case ']':
			brackets++
		case '{':
			braces--
		case '}':
			braces++
		}

		prefix := strings.TrimRight(body[:i], trimSet)
		if len(prefix) < MinCandidateLen || len(prefix) == lastLen || !canEndValue(prefix[len(prefix)-1]) {
			continue
		}
		lastLen = len(prefix)
		tried++

		candidate := closeStructure(prefix, brackets, braces)
		if v, err := parse(candidate); err == nil {
			return Result{
				Value:   v,
				Text:    candidate,
				Outcome: OutcomeTruncated,
			}, true
		}
	}
	return Result{}, false
}

func parse(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// boundedPrefix cuts s to at most n bytes on a rune boundary.
func boundedPrefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
