package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the graph store, AI providers and answering budgets.

Use subcommands to configure specific settings or run the interactive wizard.
Settings are stored in ~/.lexgraph/config.toml; LEXGRAPH_* environment
variables override them.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:     "set <key> <value>",
	Short:   "Set a single setting",
	Example: "  lexgraph settings set retrieval.top_k 8\n  lexgraph settings set store.backend sqlite",
	Args:    cobra.ExactArgs(2),
	RunE:    runSettingsSet,
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a setting so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsUnset,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every setting key",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the current settings can be started with",
	Args:  cobra.NoArgs,
	RunE:  runSettingsValidate,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

var settingsStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Select the graph store",
	RunE:  runSettingsStore,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used for vector retrieval.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used to generate answers.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsStoreCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

var errNoSettings = errors.New("settings service not configured")

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(titleStyle.Render("Current Settings"))
	cmd.Println()

	cmd.Println("[Store]")
	field(cmd, "Backend", settings.Store.Backend.Description())
	switch settings.Store.Backend {
	case domain.StoreSQLite:
		field(cmd, "Path", orDefault(settings.Store.Path, "~/.lexgraph/data"))
	case domain.StoreNeo4j:
		field(cmd, "URI", settings.Neo4j.URI)
		field(cmd, "User", settings.Neo4j.User)
		field(cmd, "Database", settings.Neo4j.Database)
		field(cmd, "Password", secret(settings.Neo4j.Password))
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	field(cmd, "Provider", settings.Embedding.Provider.Description())
	if settings.Embedding.Provider == domain.AIProviderHash {
		field(cmd, "Dimensions", strconv.Itoa(settings.Embedding.Dimensions))
	} else {
		field(cmd, "Model", settings.Embedding.Model)
	}
	if settings.Embedding.BaseURL != "" {
		field(cmd, "Base URL", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		field(cmd, "API Key", secret(settings.Embedding.APIKey))
	}
	field(cmd, "Status", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	field(cmd, "Provider", settings.LLM.Provider.Description())
	field(cmd, "Model", settings.LLM.Model)
	if settings.LLM.BaseURL != "" {
		field(cmd, "Base URL", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		field(cmd, "API Key", secret(settings.LLM.APIKey))
	}
	field(cmd, "Status", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Answering]")
	field(cmd, "Vector index dimensions", strconv.Itoa(settings.VectorIndex.Dimensions))
	field(cmd, "Top K", strconv.Itoa(settings.Retrieval.TopK))
	field(cmd, "Item limit", strconv.Itoa(settings.Retrieval.ItemLimit))
	field(cmd, "Max attempts", strconv.Itoa(settings.Retrieval.MaxAttempts))
	field(cmd, "Query timeout", fmt.Sprintf("%ds", settings.Store.QueryTimeoutSeconds))
	field(cmd, "Generation timeout", fmt.Sprintf("%ds", settings.Generation.TimeoutSeconds))
	field(cmd, "Generation retries", strconv.Itoa(settings.Generation.MaxRetries))
	field(cmd, "Guardrail", fmt.Sprintf("%s (threshold %.2f)", settings.Guardrail.Scorer, settings.Guardrail.Threshold))
	cmd.Println()

	cmd.Println("[Server]")
	field(cmd, "Address", settings.Server.Addr)
	field(cmd, "Request timeout", fmt.Sprintf("%ds", settings.Server.RequestTimeoutSeconds))
	if settings.Server.RateLimitPerMinute > 0 {
		field(cmd, "Rate limit", fmt.Sprintf("%d/min", settings.Server.RateLimitPerMinute))
	}
	cmd.Println()

	if err := settings.Validate(); err != nil {
		cmd.Println(warnStyle.Render(fmt.Sprintf("Warning: %v", err)))
		cmd.Println("Run 'lexgraph settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("Set %s = %s\n", args[0], args[1])
	return nil
}

func runSettingsUnset(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	if err := settingsService.Unset(args[0]); err != nil {
		return err
	}
	cmd.Printf("Unset %s\n", args[0])
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runSettingsValidate(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	if err := settingsService.Validate(); err != nil {
		return err
	}
	cmd.Println("Configuration is valid.")
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}

	cmd.Println(titleStyle.Render("lexgraph Settings Wizard"))
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Graph Store")
	cmd.Println("-------------------")
	if err := configureStore(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 2: Embedding Provider")
	cmd.Println("--------------------------")
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 3: LLM Provider")
	cmd.Println("--------------------")
	cmd.Println("Answers need an LLM. Without one every answer is insufficient.")
	cmd.Print("Configure an LLM now? [Y/n]: ")
	if answer := strings.ToLower(readLine(reader)); answer == "" || answer == "y" || answer == "yes" {
		if err := configureLLMProvider(cmd, reader); err != nil {
			return err
		}
	} else {
		cmd.Println("Skipped.")
		cmd.Println()
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Println(warnStyle.Render(fmt.Sprintf("Warning: %v", err)))
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runSettingsStore(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	return configureStore(cmd, nil)
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	return configureEmbeddingProvider(cmd, nil)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	return configureLLMProvider(cmd, nil)
}

// prompter reads wizard answers from the command's input.
type prompter struct {
	cmd    *cobra.Command
	reader *bufio.Reader
}

func newPrompter(cmd *cobra.Command, reader *bufio.Reader) *prompter {
	if reader == nil {
		reader = bufio.NewReader(cmd.InOrStdin())
	}
	return &prompter{cmd: cmd, reader: reader}
}

// choose lists options and returns the 1-based pick, defaulting to the first.
func (p *prompter) choose(title string, options []string) int {
	p.cmd.Println(title)
	for i, o := range options {
		p.cmd.Printf("  %d. %s\n", i+1, o)
	}
	p.cmd.Print("\nEnter choice [1]: ")
	return parseChoice(readLine(p.reader), len(options), 1)
}

// ask shows def in brackets and returns it when the answer is blank.
func (p *prompter) ask(label, def string) string {
	p.cmd.Printf("Enter %s [%s]: ", label, def)
	return orDefault(readLine(p.reader), def)
}

func (p *prompter) secret(label string) string {
	p.cmd.Printf("Enter %s: ", label)
	v := readPassword(p.cmd.InOrStdin(), p.reader)
	p.cmd.Println()
	return v
}

func configureStore(cmd *cobra.Command, reader *bufio.Reader) error {
	p := newPrompter(cmd, reader)
	backends := domain.AllStoreBackends()
	names := make([]string, len(backends))
	for i, b := range backends {
		names[i] = b.Description()
	}
	selected := backends[p.choose("Select Graph Store", names)-1]

	var path string
	switch selected {
	case domain.StoreSQLite:
		path = p.ask("data directory", "~/.lexgraph/data")
		if path == "~/.lexgraph/data" {
			path = ""
		}
	case domain.StoreNeo4j:
		d := settingsService.GetDefaults().Neo4j
		answers := [][2]string{
			{"neo4j.uri", p.ask("URI", d.URI)},
			{"neo4j.user", p.ask("User", d.User)},
			{"neo4j.database", p.ask("Database", d.Database)},
			{"neo4j.password", p.secret("password")},
		}
		for _, kv := range answers {
			if err := settingsService.Set(kv[0], kv[1]); err != nil {
				return err
			}
		}
	}

	if err := settingsService.SetStoreBackend(selected, path); err != nil {
		return fmt.Errorf("set store: %w", err)
	}
	cmd.Printf("Graph store set to: %s\n\n", selected.Description())
	return nil
}

// providerStep describes one AI provider prompt sequence.
type providerStep struct {
	title     string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	apply     func(domain.AIProvider, string, string) error
	validate  func() error
}

// run asks for provider, model and key, saves them and pings the result.
func (st providerStep) run(p *prompter) (domain.AIProvider, string, error) {
	names := make([]string, len(st.providers))
	for i, pr := range st.providers {
		names[i] = pr.Description()
	}
	provider := st.providers[p.choose("Select "+st.title, names)-1]

	var model string
	if def, ok := st.models[provider]; ok {
		model = p.ask("model name", def)
	}
	var apiKey string
	if provider.RequiresAPIKey() {
		if apiKey = p.secret("API key"); apiKey == "" {
			return "", "", fmt.Errorf("%w: API key is required for %s", domain.ErrInvalidInput, provider)
		}
	}

	if err := st.apply(provider, model, apiKey); err != nil {
		return "", "", err
	}
	p.cmd.Print("Validating configuration... ")
	if err := st.validate(); err != nil {
		p.cmd.Printf("FAILED: %v\n", err)
		return "", "", fmt.Errorf("%s check failed: %w", strings.ToLower(st.title), err)
	}
	p.cmd.Println("OK")
	return provider, model, nil
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	step := providerStep{
		title:     "Embedding Provider",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		apply:     settingsService.SetEmbeddingProvider,
		validate:  settingsService.ValidateEmbeddingConfig,
	}
	provider, _, err := step.run(newPrompter(cmd, reader))
	if err != nil {
		return err
	}
	cmd.Printf("Embedding provider configured: %s\n", provider.Description())
	if provider != domain.AIProviderHash {
		cmd.Println(dimStyle.Render("Stored paragraphs must be re-seeded with the new model."))
	}
	cmd.Println()
	return nil
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	step := providerStep{
		title:     "LLM Provider",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		apply:     settingsService.SetLLMProvider,
		validate:  settingsService.ValidateLLMConfig,
	}
	provider, model, err := step.run(newPrompter(cmd, reader))
	if err != nil {
		return err
	}
	cmd.Printf("LLM provider configured: %s (%s)\n\n", provider.Description(), model)
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal and falls back to
// a plain line read otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func secret(value string) string {
	if value == "" {
		return "(not set)"
	}
	return maskAPIKey(value)
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return warnStyle.Render("not configured")
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
