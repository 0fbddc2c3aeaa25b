package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change configuration",
	RunE:  runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Sets a configuration value and persists it immediately.

Common keys:
  vault.path                   vault directory
  openai.api_key               OpenAI API key
  embedding.model              embedding model name
  llm.model                    scoring model name
  engine.similarity_threshold  candidate threshold (0-1)
  engine.min_ai_score          link threshold (0-10)
  engine.max_links             links written per note
  engine.generate_tags         enable tag generation (true/false)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cmd.Printf("Config file: %s\n\n", configStore.Path())
	cmd.Printf("  vault.path:                  %s\n", orUnset(configStore.GetString("vault.path")))
	cmd.Printf("  openai.api_key:              %s\n", orUnset(maskKey(configStore.GetString("openai.api_key"))))
	cmd.Printf("  embedding.model:             %s\n", orUnset(configStore.GetString("embedding.model")))
	cmd.Printf("  llm.model:                   %s\n", orUnset(configStore.GetString("llm.model")))
	cmd.Printf("  engine.similarity_threshold: %v\n", configStore.GetFloat("engine.similarity_threshold"))
	cmd.Printf("  engine.min_ai_score:         %v\n", configStore.GetFloat("engine.min_ai_score"))
	cmd.Printf("  engine.max_links:            %d\n", configStore.GetInt("engine.max_links"))
	cmd.Printf("  engine.generate_tags:        %v\n", configStore.GetBool("engine.generate_tags"))
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	value, ok := configStore.Get(args[0])
	if !ok {
		return fmt.Errorf("key %s is not set", args[0])
	}
	cmd.Printf("%v\n", value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key, raw := args[0], args[1]
	if err := configStore.Set(key, parseConfigValue(raw)); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	cmd.Printf("Set %s.\n", key)
	return nil
}

// parseConfigValue keeps TOML types sensible: bools and numbers are stored
// typed, everything else as a string.
func parseConfigValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func orUnset(value string) string {
	if value == "" {
		return "(not set)"
	}
	return value
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
