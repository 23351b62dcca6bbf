package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/solatis/ruleblocks/internal/core/db"
	"github.com/solatis/ruleblocks/internal/validator"
)

var errValidationFailed = errors.New("validation failed")

var checkCmd = &cobra.Command{
	Use:   "check <rule-set> [file]",
	Short: "Validate JSON or YAML input against a rule set",
	Long: `Validate input read from file (or stdin when omitted or "-") against a
registered rule set. Files ending in .yaml or .yml are decoded as YAML,
everything else as JSON. YAML timestamps are kept as strings, so date rules
parse them the same way for both formats. Exits non-zero when validation fails.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Bool("batch", false, "treat the input as a list and validate each element")
	checkCmd.Flags().Bool("record", false, "persist the run to the configured database")
}

type checkOutput struct {
	RuleSet     string         `json:"rule_set"`
	Fingerprint string         `json:"fingerprint"`
	RunID       string         `json:"run_id,omitempty"`
	OK          bool           `json:"ok"`
	Errors      []checkError   `json:"errors"`
	Captures    map[string]any `json:"captures,omitempty"`
}

type checkError struct {
	Name       string `json:"name"`
	BlockIndex int    `json:"block_index"`
	Code       string `json:"code"`
	Template   string `json:"template"`
	Params     []any  `json:"params,omitempty"`
	Value      any    `json:"value"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := defaultRegistry(cfg)
	if err != nil {
		return err
	}
	entry, err := reg.Get(args[0])
	if err != nil {
		return err
	}

	path := "-"
	if len(args) == 2 {
		path = args[1]
	}
	input, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	batch, _ := cmd.Flags().GetBool("batch")
	var inputs []any
	if batch {
		list, ok := input.([]any)
		if !ok {
			return fmt.Errorf("--batch requires a list input, got %T", input)
		}
		inputs = list
	} else {
		inputs = []any{input}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results, err := validator.ValidateBatch(ctx, entry.Checker, inputs, cfg.Engine.Workers)
	if err != nil {
		return err
	}

	record, _ := cmd.Flags().GetBool("record")
	var store *db.Store
	if record {
		if cfg.Store.DBURL == "" {
			return fmt.Errorf("--record requires --db-url or RB_STORE_DB_URL")
		}
		s, closer, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()
		store = s
	}

	allOK := true
	outputs := make([]checkOutput, len(results))
	for i, result := range results {
		out := checkOutput{
			RuleSet:     entry.Name,
			Fingerprint: entry.Fingerprint,
			OK:          result.OK,
			Errors:      make([]checkError, 0, len(result.Errors)),
			Captures:    result.Captures,
		}
		for _, e := range result.Errors {
			out.Errors = append(out.Errors, checkError{
				Name:       e.Name,
				BlockIndex: e.BlockIndex,
				Code:       e.Code.String(),
				Template:   e.Template,
				Params:     e.Params,
				Value:      e.Value,
			})
		}
		if store != nil {
			report := db.NewRunReport(entry.Name, entry.Fingerprint, result.OK, result.Errors)
			if err := store.SaveRun(ctx, report); err != nil {
				return fmt.Errorf("failed to record run: %w", err)
			}
			out.RunID = string(report.ID)
		}
		allOK = allOK && result.OK
		outputs[i] = out
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if batch {
		err = enc.Encode(outputs)
	} else {
		err = enc.Encode(outputs[0])
	}
	if err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	logger.Debug("check complete", "rule_set", entry.Name, "inputs", len(inputs), "ok", allOK)
	if !allOK {
		return errValidationFailed
	}
	return nil
}

// readInput decodes path ("-" for stdin) as YAML or JSON by extension.
func readInput(stdin io.Reader, path string) (any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var input any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid YAML input: %w", err)
		}
		if doc.Kind == 0 {
			return nil, nil
		}
		timestampsAsStrings(&doc)
		if err := doc.Decode(&input); err != nil {
			return nil, fmt.Errorf("invalid YAML input: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&input); err != nil {
			return nil, fmt.Errorf("invalid JSON input: %w", err)
		}
		if dec.More() {
			return nil, fmt.Errorf("invalid JSON input: trailing data")
		}
	}
	return input, nil
}

// timestampsAsStrings retags unquoted YAML timestamps as strings so they
// reach the rules as text, the same as in JSON input.
func timestampsAsStrings(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!timestamp" {
		n.Tag = "!!str"
	}
	for _, c := range n.Content {
		timestampsAsStrings(c)
	}
}
