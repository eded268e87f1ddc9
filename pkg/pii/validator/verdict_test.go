package validator

import (
	"testing"

	"github.com/pkg/errors"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Verdict
		wantErr error
	}{
		{
			name: "plain object",
			raw:  `{"confidence":0.82}`,
			want: Verdict{Confidence: 0.82, HasConfidence: true},
		},
		{
			name: "fenced with corrections",
			raw:  "```json\n{\"confidence\": 0.9, \"corrected_type\": \"PHONE\", \"corrected_value\": \"9876543210\"}\n```",
			want: Verdict{Confidence: 0.9, HasConfidence: true, CorrectedType: "PHONE", CorrectedValue: "9876543210"},
		},
		{
			name: "bare fence",
			raw:  "```\n{\"confidence\": 0.4}\n```",
			want: Verdict{Confidence: 0.4, HasConfidence: true},
		},
		{
			name: "wrapped in prose",
			raw:  `Sure! Here is my answer: {"confidence": 0.7} Hope this helps.`,
			want: Verdict{Confidence: 0.7, HasConfidence: true},
		},
		{
			name: "reasoning block",
			raw:  "<think>the number {looks} fine</think>\n{\"confidence\": 0.65}",
			want: Verdict{Confidence: 0.65, HasConfidence: true},
		},
		{
			name: "missing confidence",
			raw:  `{"corrected_type":"NAME"}`,
			want: Verdict{CorrectedType: "NAME"},
		},
		{
			name: "confidence as string",
			raw:  `{"confidence":"0.55"}`,
			want: Verdict{Confidence: 0.55, HasConfidence: true},
		},
		{
			name: "confidence above range",
			raw:  `{"confidence":7}`,
			want: Verdict{Confidence: 1, HasConfidence: true},
		},
		{
			name: "confidence below range",
			raw:  `{"confidence":-0.2}`,
			want: Verdict{Confidence: 0, HasConfidence: true},
		},
		{
			name: "non string corrections ignored",
			raw:  `{"confidence":0.5,"corrected_type":null,"corrected_value":42}`,
			want: Verdict{Confidence: 0.5, HasConfidence: true},
		},
		{
			name: "boolean confidence ignored",
			raw:  `{"confidence":true}`,
			want: Verdict{},
		},
		{
			name:    "no object",
			raw:     "I cannot help with that.",
			wantErr: ErrParse,
		},
		{
			name:    "broken object",
			raw:     `answer: {"confidence": 0.5,,}`,
			wantErr: ErrParse,
		},
		{
			name:    "json array",
			raw:     `[0.5, 0.9]`,
			wantErr: ErrParse,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVerdict(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseVerdict() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVerdict() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseVerdict() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
