package scoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// The wire form of a problem keys criteria and alternatives by name:
//
//	{
//	  "name": "laptops",
//	  "criteria":     {"price": {"direction": "cost", "weight": 0.5}, ...},
//	  "alternatives": {"a": {"description": "...", "price": 900, ...}, ...}
//	}
//
// Key order is significant and is preserved in both directions.

const descriptionKey = "description"

func (p *Problem) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return malformed("problem", err)
	}
	out := Problem{}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return malformed("problem", err)
		}
		switch key {
		case "name":
			if out.Name, err = readString(dec); err != nil {
				return malformed("name", err)
			}
		case descriptionKey:
			if out.Description, err = readString(dec); err != nil {
				return malformed("description", err)
			}
		case "criteria":
			if out.Criteria, err = readCriteria(dec); err != nil {
				return malformed("criteria", err)
			}
		case "alternatives":
			if out.Alternatives, err = readAlternatives(dec); err != nil {
				return malformed("alternatives", err)
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return malformed(key, err)
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return malformed("problem", err)
	}
	*p = out
	return nil
}

func readCriteria(dec *json.Decoder) ([]Criterion, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var out []Criterion
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("criterion %q: %w", name, err)
		}
		dir, _ := raw["direction"].(string)
		w, ok := raw["weight"]
		weight := math.NaN()
		if ok {
			weight = toFloat(w)
		}
		out = append(out, Criterion{Name: name, Direction: ParseDirection(dir), Weight: weight})
	}
	return out, expectDelim(dec, '}')
}

func readAlternatives(dec *json.Decoder) ([]Alternative, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var out []Alternative
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("alternative %q: %w", name, err)
		}
		alt := Alternative{Name: name, Scores: make(map[string]float64, len(raw))}
		for k, v := range raw {
			if k == descriptionKey {
				alt.Description, _ = v.(string)
				continue
			}
			alt.Scores[k] = toFloat(v)
		}
		out = append(out, alt)
	}
	return out, expectDelim(dec, '}')
}

func (p Problem) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeKey(&buf, "name", true)
	writeString(&buf, p.Name)
	if p.Description != "" {
		writeKey(&buf, descriptionKey, false)
		writeString(&buf, p.Description)
	}

	writeKey(&buf, "criteria", false)
	buf.WriteByte('{')
	for j, c := range p.Criteria {
		writeKey(&buf, c.Name, j == 0)
		buf.WriteString(`{"direction":`)
		writeString(&buf, string(c.Direction))
		buf.WriteString(`,"weight":`)
		writeFloat(&buf, c.Weight)
		buf.WriteByte('}')
	}
	buf.WriteByte('}')

	writeKey(&buf, "alternatives", false)
	buf.WriteByte('{')
	for i, a := range p.Alternatives {
		writeKey(&buf, a.Name, i == 0)
		buf.WriteByte('{')
		first := true
		if a.Description != "" {
			writeKey(&buf, descriptionKey, true)
			writeString(&buf, a.Description)
			first = false
		}
		for _, k := range scoreKeys(p.Criteria, a.Scores) {
			writeKey(&buf, k, first)
			writeFloat(&buf, a.Scores[k])
			first = false
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// scoreKeys lists an alternative's score names: criteria first in problem
// order, then any extra names sorted.
func scoreKeys(criteria []Criterion, scores map[string]float64) []string {
	keys := make([]string, 0, len(scores))
	known := make(map[string]bool, len(criteria))
	for _, c := range criteria {
		known[c.Name] = true
		if _, ok := scores[c.Name]; ok {
			keys = append(keys, c.Name)
		}
	}
	var extra []string
	for k := range scores {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

func (p *Problem) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return malformed("problem", fmt.Errorf("line %d: expected a mapping", node.Line))
	}
	out := Problem{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		switch key {
		case "name":
			out.Name = val.Value
		case descriptionKey:
			out.Description = val.Value
		case "criteria":
			if val.Kind != yaml.MappingNode {
				return malformed("criteria", fmt.Errorf("line %d: expected a mapping", val.Line))
			}
			for c := 0; c+1 < len(val.Content); c += 2 {
				var raw struct {
					Direction string    `yaml:"direction"`
					Weight    yaml.Node `yaml:"weight"`
				}
				if err := val.Content[c+1].Decode(&raw); err != nil {
					return malformed(val.Content[c].Value, err)
				}
				out.Criteria = append(out.Criteria, Criterion{
					Name:      val.Content[c].Value,
					Direction: ParseDirection(raw.Direction),
					Weight:    yamlFloat(&raw.Weight),
				})
			}
		case "alternatives":
			if val.Kind != yaml.MappingNode {
				return malformed("alternatives", fmt.Errorf("line %d: expected a mapping", val.Line))
			}
			for a := 0; a+1 < len(val.Content); a += 2 {
				body := val.Content[a+1]
				if body.Kind != yaml.MappingNode {
					return malformed(val.Content[a].Value, fmt.Errorf("line %d: expected a mapping", body.Line))
				}
				alt := Alternative{Name: val.Content[a].Value, Scores: map[string]float64{}}
				for s := 0; s+1 < len(body.Content); s += 2 {
					k := body.Content[s].Value
					if k == descriptionKey {
						alt.Description = body.Content[s+1].Value
						continue
					}
					alt.Scores[k] = yamlFloat(body.Content[s+1])
				}
				out.Alternatives = append(out.Alternatives, alt)
			}
		}
	}
	*p = out
	return nil
}

func (p Problem) MarshalYAML() (any, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	addScalar(root, "name", p.Name)
	if p.Description != "" {
		addScalar(root, descriptionKey, p.Description)
	}

	criteria := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range p.Criteria {
		body := &yaml.Node{Kind: yaml.MappingNode}
		addScalar(body, "direction", string(c.Direction))
		addScalar(body, "weight", formatFloat(c.Weight))
		criteria.Content = append(criteria.Content, keyNode(c.Name), body)
	}
	root.Content = append(root.Content, keyNode("criteria"), criteria)

	alts := &yaml.Node{Kind: yaml.MappingNode}
	for _, a := range p.Alternatives {
		body := &yaml.Node{Kind: yaml.MappingNode}
		if a.Description != "" {
			addScalar(body, descriptionKey, a.Description)
		}
		for _, k := range scoreKeys(p.Criteria, a.Scores) {
			addScalar(body, k, formatFloat(a.Scores[k]))
		}
		alts.Content = append(alts.Content, keyNode(a.Name), body)
	}
	root.Content = append(root.Content, keyNode("alternatives"), alts)
	return root, nil
}

// DecodeProblemYAML reads a single YAML problem document.
func DecodeProblemYAML(r io.Reader) (*Problem, error) {
	var p Problem
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		var pe *ProblemError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, malformed("problem", err)
	}
	return &p, nil
}

// toFloat converts a decoded JSON value to a float64. Values that are not
// numbers or numeric strings become NaN.
func toFloat(v any) float64 {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case float64:
		return x
	case string:
		return parseFloat(x)
	default:
		return math.NaN()
	}
}

func yamlFloat(n *yaml.Node) float64 {
	if n == nil || n.Kind != yaml.ScalarNode {
		return math.NaN()
	}
	switch n.Tag {
	case "!!int", "!!float", "!!str", "":
		return parseFloat(n.Value)
	default:
		return math.NaN()
	}
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func malformed(entity string, err error) error {
	return &ProblemError{Kind: KindMalformedProblem, Entity: entity, Detail: err.Error()}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

func readString(dec *json.Decoder) (string, error) {
	var s *string
	if err := dec.Decode(&s); err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}
	return *s, nil
}

func writeKey(buf *bytes.Buffer, key string, first bool) {
	if !first {
		buf.WriteByte(',')
	}
	writeString(buf, key)
	buf.WriteByte(':')
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

func writeFloat(buf *bytes.Buffer, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		buf.WriteString("null")
		return
	}
	buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func keyNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func addScalar(m *yaml.Node, key, value string) {
	m.Content = append(m.Content, keyNode(key), &yaml.Node{Kind: yaml.ScalarNode, Value: value})
}
