package pastel

import (
	"encoding/json"
	"testing"
)

func Test_ParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    Amount
		wantErr bool
	}{
		{input: "0", want: 0},
		{input: "1", want: 100000},
		{input: "12.34567", want: 1234567},
		{input: "0.0001", want: 10},
		{input: "0.00001", want: 1},
		{input: "0.000015", want: 2},
		{input: "0.0000149", want: 1},
		{input: "-1.5", want: -150000},
		{input: "3e-05", want: 3},
		{input: ".5", want: 50000},
		{input: "5.", want: 500000},
		{input: "", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to parse : %s", err)
			}
			if got != tt.want {
				t.Fatalf("wrong amount : got %d, want %d", got, tt.want)
			}
		})
	}
}

func Test_Amount_String(t *testing.T) {
	tests := []struct {
		amount Amount
		want   string
	}{
		{amount: 0, want: "0.00000"},
		{amount: 1234567, want: "12.34567"},
		{amount: 10, want: "0.00010"},
		{amount: -150000, want: "-1.50000"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.amount.String(); got != tt.want {
				t.Fatalf("wrong string : got %s, want %s", got, tt.want)
			}
		})
	}
}

func Test_Amount_UnmarshalJSON(t *testing.T) {
	var entry struct {
		Amount Amount `json:"amount"`
	}

	if err := json.Unmarshal([]byte(`{"amount": 12.34567}`), &entry); err != nil {
		t.Fatalf("failed to unmarshal : %s", err)
	}
	if entry.Amount != 1234567 {
		t.Fatalf("wrong amount : got %d, want %d", entry.Amount, 1234567)
	}

	if err := json.Unmarshal([]byte(`{"amount": "0.00010"}`), &entry); err != nil {
		t.Fatalf("failed to unmarshal quoted : %s", err)
	}
	if entry.Amount != 10 {
		t.Fatalf("wrong quoted amount : got %d, want %d", entry.Amount, 10)
	}
}

func Test_Amount_JSON_RoundTrip(t *testing.T) {
	for _, amount := range []Amount{0, 1, 10, 1234567, -150000} {
		b, err := json.Marshal(amount)
		if err != nil {
			t.Fatalf("failed to marshal : %s", err)
		}

		var got Amount
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("failed to unmarshal %s : %s", b, err)
		}
		if got != amount {
			t.Fatalf("round trip doesn't match : got %d, want %d", got, amount)
		}
	}
}
