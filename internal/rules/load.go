package rules

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/estate-archive/internal/common"
)

//go:embed default_rules.yaml
var defaultRules []byte

// DefaultSource names the embedded rule set in logs and results.
const DefaultSource = "embedded:default_rules.yaml"

// DefaultYAML returns a copy of the embedded rule document.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultRules...)
}

// Default compiles the embedded rule set.
func Default() (*RuleSet, error) {
	return Parse(defaultRules, DefaultSource)
}

// Load compiles the rule file at path, or the embedded rule set when path is empty.
func Load(path string) (*RuleSet, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configError(path, "read rules file", err)
	}
	return Parse(data, path)
}

// Parse checks data against the rules schema, decodes it strictly and
// compiles it. Every failure wraps common.ErrConfig.
func Parse(data []byte, source string) (*RuleSet, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, configError(source, "parse yaml", err)
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, configError(source, "convert yaml to json", err)
	}
	if err := validateJSONAgainstSchema(BuildRulesJSONSchema(), asJSON); err != nil {
		return nil, configError(source, "schema", err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, configError(source, "decode rules", err)
	}
	if err := common.ValidateStruct(f); err != nil {
		return nil, configError(source, "validate rules", err)
	}

	sum := sha256.Sum256(data)
	rs, err := compile(&f)
	if err != nil {
		return nil, configError(source, "compile rules", err)
	}
	rs.Source = source
	rs.Digest = hex.EncodeToString(sum[:])
	return rs, nil
}

func configError(source, msg string, cause error) error {
	return common.NewAppError("RULES_INVALID", fmt.Sprintf("%s: %s", source, msg), fmt.Errorf("%w: %w", common.ErrConfig, cause))
}
