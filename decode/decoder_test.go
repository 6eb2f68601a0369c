package decode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/jonwraymond/recipeops/observe"
)

func mustJSON(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad fixture %q: %v", s, err)
	}
	return v
}

func TestDecode_WellFormedIsNoOp(t *testing.T) {
	inputs := []string{
		`{"a":1}`,
		`  {"a":[1,2,3],"b":{"c":null}}  `,
		`[true,false,null]`,
		`{"note":"keep , ] and , } inside strings"}`,
		`{"brace":"{["}`,
		`"just a string"`,
		`42`,
	}
	for _, in := range inputs {
		res, err := Decode(in)
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", in, err)
		}
		if res.Outcome != OutcomeClean || len(res.Repairs) != 0 {
			t.Errorf("Decode(%q) outcome = %v repairs = %v, want clean", in, res.Outcome, res.Repairs)
		}
		if want := mustJSON(t, in); !reflect.DeepEqual(res.Value, want) {
			t.Errorf("Decode(%q) = %#v, want %#v", in, res.Value, want)
		}
	}
}

func TestDecode_Idempotent(t *testing.T) {
	inputs := []string{
		"```json\n{\"a\":1,}\n```",
		`{"a":1,"b":[1,2,`,
		`{"items":[{"n":"salt","q":1},{"n":"pep`,
	}
	for _, in := range inputs {
		first, err := Decode(in)
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", in, err)
		}
		data, err := json.Marshal(first.Value)
		if err != nil {
			t.Fatal(err)
		}
		second, err := Decode(string(data))
		if err != nil {
			t.Fatalf("second Decode error = %v", err)
		}
		if second.Outcome != OutcomeClean {
			t.Errorf("re-decoding %s was not clean: %v", data, second.Outcome)
		}
		if !reflect.DeepEqual(first.Value, second.Value) {
			t.Errorf("values differ: %#v vs %#v", first.Value, second.Value)
		}
	}
}

func TestDecode_Repairs(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		outcome Outcome
		repairs []Repair
	}{
		{
			name:    "json fence",
			in:      "```json\n{\"a\":1}\n```",
			want:    `{"a":1}`,
			outcome: OutcomeRepaired,
			repairs: []Repair{RepairFence},
		},
		{
			name:    "bare fence",
			in:      "```\n[1,2]\n```",
			want:    `[1,2]`,
			outcome: OutcomeRepaired,
			repairs: []Repair{RepairFence},
		},
		{
			name:    "fence without closing marker",
			in:      "```json\n{\"a\":1}",
			want:    `{"a":1}`,
			outcome: OutcomeRepaired,
			repairs: []Repair{RepairFence},
		},
		{
			name:    "fenced null literal",
			in:      "```null```",
			want:    `null`,
			outcome: OutcomeRepaired,
			repairs: []Repair{RepairFence},
		},
		{
			name:    "fenced number literal",
			in:      "```123```",
			want:    `123`,
			outcome: OutcomeRepaired,
			repairs: []Repair{RepairFence},
		},
		{
			name:    "json tag without newline",
			in:      "```json{\"a\":1}```",
			want:    `{"a":1}`,
			outcome: OutcomeRepaired,
			repairs: []Repair{RepairFence},
		},
		{
			name:    "trailing commas",
			in:      `{"a":[1,2,],"b":{"c":3 , },}`,
			want:    `{"a":[1,2],"b":{"c":3}}`,
			outcome: OutcomeRepaired,
			repairs: []Repair{RepairTrailingComma},
		},
		{
			name:    "stacked commas",
			in:      `[1,,]`,
			want:    `[1]`,
			outcome: OutcomeRepaired,
			repairs: []Repair{RepairTrailingComma},
		},
		{
			name:    "truncated mid structure",
			in:      `{"a":1,"b":[1,2,`,
			want:    `{"a":1,"b":[1,2]}`,
			outcome: OutcomeRepaired,
			repairs: []Repair{RepairCloseStructure},
		},
		{
			name:    "truncated mid string",
			in:      `{"title":"Pancakes","notes":"mix well`,
			want:    `{"title":"Pancakes","notes":"mix well"}`,
			outcome: OutcomeRepaired,
			repairs: []Repair{RepairCloseString, RepairCloseStructure},
		},
		{
			name:    "escaped quote before cut",
			in:      `{"q":"say \"hi\"`,
			want:    `{"q":"say \"hi\""}`,
			outcome: OutcomeRepaired,
			repairs: []Repair{RepairCloseString, RepairCloseStructure},
		},
		{
			name:    "fenced and truncated",
			in:      "```json\n{\"steps\":[\"boil\",\"drain\",",
			want:    `{"steps":["boil","drain"]}`,
			outcome: OutcomeRepaired,
			repairs: []Repair{RepairFence, RepairCloseStructure},
		},
		{
			name:    "object inside array falls back to truncation",
			in:      `{"items":[{"n":"salt","q":1},{"n":"pep`,
			want:    `{"items":[{"n":"salt","q":1}]}`,
			outcome: OutcomeTruncated,
			repairs: []Repair{RepairTruncate, RepairCloseStructure},
		},
		{
			name:    "truncated to the opening brace",
			in:      `{"a":tru`,
			want:    `{}`,
			outcome: OutcomeTruncated,
			repairs: []Repair{RepairTruncate, RepairCloseStructure},
		},
		{
			name:    "nested array closer order",
			in:      `[{"a":1},{"b":[1,2`,
			want:    `[{"a":1}]`,
			outcome: OutcomeTruncated,
			repairs: []Repair{RepairTruncate, RepairCloseStructure},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Decode(tt.in)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if res.Outcome != tt.outcome {
				t.Errorf("Outcome = %v, want %v", res.Outcome, tt.outcome)
			}
			if !slices.Equal(res.Repairs, tt.repairs) {
				t.Errorf("Repairs = %v, want %v", res.Repairs, tt.repairs)
			}
			if want := mustJSON(t, tt.want); !reflect.DeepEqual(res.Value, want) {
				t.Errorf("Value = %#v, want %#v", res.Value, want)
			}
			if !reflect.DeepEqual(mustJSON(t, res.Text), res.Value) {
				t.Errorf("Text %q does not parse to Value", res.Text)
			}
		})
	}
}

func TestDecode_FenceMatchesBare(t *testing.T) {
	fenced, err := Decode("```json\n{\"a\":1}\n```")
	if err != nil {
		t.Fatal(err)
	}
	bare, err := Decode(`{"a":1}`)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(fenced.Value, bare.Value) {
		t.Errorf("fenced %#v != bare %#v", fenced.Value, bare.Value)
	}
}

func TestDecode_Failure(t *testing.T) {
	for _, in := range []string{"", "   ", "not json at all", `{"a":`, "```\n```"} {
		_, err := Decode(in)
		if !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("Decode(%q) = %v, want ErrMalformedPayload", in, err)
		}
		var derr *DecodeError
		if !errors.As(err, &derr) {
			t.Fatalf("Decode(%q) error is %T, want *DecodeError", in, err)
		}
		if derr.Kind != KindMalformedPayload {
			t.Errorf("Kind = %v", derr.Kind)
		}
		if derr.Raw != in {
			t.Errorf("Raw = %q, want %q", derr.Raw, in)
		}
	}
}

func TestDecode_FailureRawIsBounded(t *testing.T) {
	raw := "garbage " + strings.Repeat("é", 50)
	d := New(WithPrefixLimit(10))

	_, err := d.Decode(context.Background(), raw)
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	// "garbage " is 8 bytes; a second é would cross the limit.
	if derr.Raw != "garbage é" {
		t.Errorf("Raw = %q, want %q", derr.Raw, "garbage é")
	}
	if derr.Err == nil {
		t.Error("expected last parse error to be kept")
	}
}

func TestDecode_MaxCandidatesZeroDisablesTruncation(t *testing.T) {
	d := New(WithMaxCandidates(0))
	_, err := d.Decode(context.Background(), `{"items":[{"n":"salt","q":1},{"n":"pep`)
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("err = %v, want ErrMalformedPayload", err)
	}
}

func TestResult_Unmarshal(t *testing.T) {
	res, err := Decode(`{"dish_name":"Soup","servings":2,"ingredients":[{"name":"leek"},`)
	if err != nil {
		t.Fatal(err)
	}
	var dst struct {
		DishName    string `json:"dish_name"`
		Servings    int    `json:"servings"`
		Ingredients []struct {
			Name string `json:"name"`
		} `json:"ingredients"`
	}
	if err := res.Unmarshal(&dst); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if dst.DishName != "Soup" || dst.Servings != 2 || len(dst.Ingredients) != 1 || dst.Ingredients[0].Name != "leek" {
		t.Errorf("unexpected result %+v", dst)
	}
}

func TestDecoder_LogsRepairs(t *testing.T) {
	var buf bytes.Buffer
	d := New(WithLogger(observe.NewLoggerWithWriter("debug", &buf)))

	if _, err := d.Decode(context.Background(), `{"a":1}`); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("clean decode should not log, got %s", buf.String())
	}

	if _, err := d.Decode(context.Background(), `{"a":[1,`); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `"payload repaired"`) || !strings.Contains(out, `"close_structure"`) {
		t.Errorf("expected repair log, got %s", out)
	}

	buf.Reset()
	_, _ = d.Decode(context.Background(), "nope")
	if !strings.Contains(buf.String(), `"raw_prefix":"nope"`) {
		t.Errorf("expected failure log with raw prefix, got %s", buf.String())
	}
}

func TestDecoder_ConcurrentUse(t *testing.T) {
	d := New()
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				res, err := d.Decode(context.Background(), `{"a":1,"b":[1,2,`)
				if err != nil || res.Outcome != OutcomeRepaired {
					t.Errorf("Decode() = %v, %v", res.Outcome, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestOutcome_String(t *testing.T) {
	for o, want := range map[Outcome]string{
		OutcomeClean:     "clean",
		OutcomeRepaired:  "repaired",
		OutcomeTruncated: "truncated",
		Outcome(99):      "unknown",
	} {
		if got := o.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", o, got, want)
		}
	}
}
