package sqlsafety

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Status
	}{
		{"simple select", "SELECT * FROM users", ReadOnly},
		{"select with join", "SELECT a.id FROM a JOIN b ON a.id = b.id", ReadOnly},
		{"cte select", "WITH recent AS (SELECT * FROM events) SELECT * FROM recent", ReadOnly},
		{"insert", "INSERT INTO users (name) VALUES ('x')", Mutating},
		{"update", "UPDATE users SET name = 'x'", Mutating},
		{"delete", "DELETE FROM users", Mutating},
		{"drop table", "DROP TABLE users", Mutating},
		{"truncate", "TRUNCATE users", Mutating},
		{"select into", "SELECT * INTO backup FROM users", Mutating},
		{"keyword in comment ignored", "SELECT * FROM users -- DELETE me later", ReadOnly},
		{"keyword in block comment ignored", "SELECT * /* DROP this comment */ FROM users", ReadOnly},
		{"case insensitive", "insert into users values (1)", Mutating},
		{"substring not a keyword", "SELECT * FROM inserted_log", ReadOnly},
		{"begin transaction", "BEGIN; SELECT 1;", Mutating},
		{"multiple select statements", "SELECT 1; SELECT 2", Mutating},
		{"trailing semicolon is still one statement", "SELECT 1;", ReadOnly},
		{"disallowed starter with no forbidden keyword", "FOO bar", Mutating},
		{"show", "SHOW TABLES", ReadOnly},
		{"describe", "DESCRIBE users", ReadOnly},
		{"explain", "EXPLAIN SELECT * FROM users", ReadOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.query)
			if got.Status != tt.want {
				t.Errorf("Classify(%q).Status = %v, want %v (reason: %s)", tt.query, got.Status, tt.want, got.Reason)
			}
		})
	}
}

func TestClassify_UnknownCases(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"empty string", ""},
		{"whitespace only", "   \n\t  "},
		{"comment only", "-- just a comment\n"},
		{"punctuation only", "( )"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.query)
			if got.Status != Unknown {
				t.Errorf("Classify(%q).Status = %v, want Unknown (reason: %s)", tt.query, got.Status, got.Reason)
			}
		})
	}
}

func TestClassify_MutatingReasonNamesKeyword(t *testing.T) {
	got := Classify("DELETE FROM users")
	if !strings.Contains(got.Reason, "DELETE") {
		t.Fatalf("Reason = %q, want it to name DELETE", got.Reason)
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{ReadOnly, "READ_ONLY"},
		{Mutating, "WRITE"},
		{Unknown, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
