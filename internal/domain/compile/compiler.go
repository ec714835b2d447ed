// Package compile turns a rule source stream into a frozen engine model.
//
// The source format is one JSON array per line; each element is
//
//	{"rule_code": "<string>", "conditions": [{"field": "<string>", "operator": "EQUAL_TO", "value": <scalar>}, ...]}
//
// Blank lines and lines starting with '#' are skipped. Errors carry the
// 1-based source line number.
package compile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/helios-rules/helios/internal/domain/engine"
)

// sourceRule is the wire form of one rule.
type sourceRule struct {
	RuleCode   string            `json:"rule_code"`
	Conditions []sourceCondition `json:"conditions"`
}

// sourceCondition is the wire form of one condition.
type sourceCondition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// maxLineBytes bounds a single source line; rule arrays are written one
// batch per line and large rulebases split across many lines.
const maxLineBytes = 16 << 20

// Compile reads rule source and builds a frozen model.
func Compile(r io.Reader) (*engine.Model, error) {
	b := engine.NewBuilder()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}

		var batch []sourceRule
		if err := json.Unmarshal(raw, &batch); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for _, sr := range batch {
			conds, err := convertConditions(sr)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			if err := b.AddRule(sr.RuleCode, conds); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", line+1, err)
	}

	return b.Build()
}

// CompileFile opens and compiles a rule source file.
func CompileFile(path string) (*engine.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Compile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// convertConditions maps wire conditions to builder conditions.
func convertConditions(sr sourceRule) ([]engine.Condition, error) {
	conds := make([]engine.Condition, 0, len(sr.Conditions))
	for _, sc := range sr.Conditions {
		op, err := engine.ParseOperator(sc.Operator)
		if err != nil {
			return nil, fmt.Errorf("rule %q: field %q: %w", sr.RuleCode, sc.Field, err)
		}
		val, err := engine.ScalarOf(sc.Value)
		if err != nil {
			return nil, fmt.Errorf("rule %q: field %q: %w", sr.RuleCode, sc.Field, err)
		}
		conds = append(conds, engine.Condition{Field: sc.Field, Op: op, Value: val})
	}
	return conds, nil
}
