package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/nexusforge/nexus"
	"github.com/nexusforge/nexus/internal/engine"
	"github.com/nexusforge/nexus/internal/provider"
)

var chatSessionFile string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive storytelling session",
	Long: `Starts the interactive REPL. Plain input is sent to the model and
the response streams into the terminal. Lines starting with "/" are
commands; type /help for the list. Ctrl+C cancels an in-flight
response, Ctrl+D exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := newInput(cfg.DataDir)
		defer in.Close()

		app, err := newAppPromptingForKey(in)
		if err != nil {
			return err
		}
		return runChat(app, in)
	},
}

// newAppPromptingForKey builds the App, prompting once for an API key when
// the configured provider has no credential.
func newAppPromptingForKey(in *input) (*nexus.App, error) {
	app, err := nexus.NewApp(cfg)
	if err == nil || !provider.IsAuthError(err) {
		return app, err
	}

	fmt.Fprintf(os.Stderr, "no credential for provider %q\n", cfg.Provider)
	key, perr := in.line.PasswordPrompt(fmt.Sprintf("%s API key: ", cfg.Provider))
	key = strings.TrimSpace(key)
	if perr != nil || key == "" {
		return nil, err
	}
	cfg.SetKey(cfg.Provider, key)
	return nexus.NewApp(cfg)
}

func init() {
	chatCmd.Flags().StringVarP(&chatSessionFile, "session", "s", "", "Session file to resume")
	rootCmd.AddCommand(chatCmd)
}

// input wraps liner with persistent history, the way every session of the
// client shares one history file under the data dir.
type input struct {
	line        *liner.State
	historyFile string
}

func newInput(dataDir string) *input {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	in := &input{
		line:        line,
		historyFile: filepath.Join(dataDir, "chat_history"),
	}
	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

func (in *input) Read(prompt string) (string, error) {
	text, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		in.line.AppendHistory(text)
	}
	return text, nil
}

func (in *input) Close() {
	if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		in.line.WriteHistory(f)
		f.Close()
	}
	in.line.Close()
}

func runChat(app *nexus.App, in *input) error {
	if chatSessionFile != "" {
		if _, err := app.LoadSession(chatSessionFile); err != nil {
			return fmt.Errorf("resume session: %w", err)
		}
		fmt.Printf("Resumed %s (%d turns)\n", chatSessionFile, app.Session.Log.Len())
	}

	// Ctrl+C cancels the in-flight response instead of killing the REPL.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			app.Session.Cancel()
		}
	}()

	if app.Config.Autosave.Enabled {
		c := cron.New()
		_, err := c.AddFunc(app.Config.Autosave.Schedule, func() {
			if app.Session.Streaming() {
				return
			}
			if _, err := app.Session.SaveSnapshot(app.Session.FileName); err != nil {
				fmt.Fprintf(os.Stderr, "autosave failed: %v\n", err)
			}
		})
		if err != nil {
			return fmt.Errorf("autosave schedule %q: %w", app.Config.Autosave.Schedule, err)
		}
		c.Start()
		defer c.Stop()
	}

	fmt.Printf("The Nexus | %s / %s (temperature %.2f)\n", app.Session.Provider.Name(), app.Session.Model, app.Session.Temperature)
	fmt.Println(`Type /help for commands, Ctrl+D to exit.`)

	for {
		text, err := in.Read("you> ")
		if err != nil {
			// liner.ErrPromptAborted is Ctrl+C at the prompt; both it and
			// EOF end the session.
			fmt.Println()
			return nil
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "/") {
			quit, err := handleCommand(app, in, text)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := send(app, in, text); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

// send streams one exchange to the terminal. On an authentication failure
// it prompts for a fresh API key and retries the same input once.
func send(app *nexus.App, in *input, text string) error {
	err := streamExchange(app, text)
	if err == nil || !provider.IsAuthError(err) {
		return err
	}

	fmt.Fprintf(os.Stderr, "authentication failed: %v\n", err)
	key, perr := in.line.PasswordPrompt(fmt.Sprintf("%s API key: ", app.Session.Provider.Name()))
	if perr != nil || strings.TrimSpace(key) == "" {
		return err
	}

	name := app.Session.Provider.Name()
	app.Config.SetKey(name, strings.TrimSpace(key))
	if serr := app.SwitchProvider(name); serr != nil {
		return serr
	}
	return streamExchange(app, text)
}

func streamExchange(app *nexus.App, text string) error {
	fmt.Println()

	printed := 0
	final, err := app.Session.Send(context.Background(), text, func(partial string) {
		if len(partial) > printed {
			fmt.Print(partial[printed:])
			printed = len(partial)
		}
	})

	switch {
	case err == nil:
		fmt.Println()
	case errors.Is(err, engine.ErrCancelled):
		if final != "" {
			fmt.Println("\n[cancelled, partial response kept]")
		} else {
			fmt.Println("\n[cancelled]")
		}
		return nil
	case final != "":
		// Salvaged partial on a mid-stream failure; the turn is kept.
		fmt.Printf("\n[stream failed, partial response kept: %v]\n", err)
		return nil
	}
	fmt.Println()
	return err
}

func handleCommand(app *nexus.App, in *input, text string) (quit bool, err error) {
	fields := strings.Fields(text)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/help", "/h":
		printHelp()
	case "/quit", "/q", "/exit":
		return true, nil
	case "/save":
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		saved, err := app.Session.SaveSnapshot(name)
		if err != nil {
			return false, err
		}
		fmt.Printf("saved %s\n", saved)
	case "/load":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: /load <file>")
		}
		snap, err := app.LoadSession(args[0])
		if err != nil {
			return false, err
		}
		fmt.Printf("loaded %s (%d turns, %s/%s)\n", args[0], len(snap.Messages), app.Session.Provider.Name(), app.Session.Model)
	case "/new":
		app.Session.Log.Replace(nil)
		app.Session.FileName = ""
		fmt.Println("new session")
	case "/sessions":
		infos, err := app.Snapshots.List()
		if err != nil {
			return false, err
		}
		if len(infos) == 0 {
			fmt.Println("no saved sessions")
		}
		for _, info := range infos {
			fmt.Printf("  %s  %s\n", info.ModTime.Format("2006-01-02 15:04"), info.Name)
		}
	case "/archive":
		keep := 10
		if len(args) > 0 {
			keep, err = strconv.Atoi(args[0])
			if err != nil {
				return false, fmt.Errorf("usage: /archive [keep-count]")
			}
		}
		result, err := app.Session.ArchiveAndTrim(context.Background(), keep)
		if result != nil {
			fmt.Printf("archived %d turns to %s, %d kept\n", result.TrimmedTurns, result.ArchiveFile, result.KeptTurns)
		}
		if err != nil {
			if errors.Is(err, engine.ErrSummaryFailed) {
				fmt.Println("continuity summary failed; character sheet unchanged")
			}
			return false, err
		}
		fmt.Println("character sheet updated")
	case "/sheet":
		if len(args) > 0 && args[0] == "clear" {
			if !confirm(in, "clear the character sheet? [y/N] ") {
				return false, nil
			}
			return false, app.Store.ClearCharacterSheet(true)
		}
		printDocument("CHARACTER SHEET", app.Store.CharacterSheet())
	case "/framework":
		printDocument("FRAMEWORK", app.Store.Framework())
	case "/doc":
		return false, handleDocCommand(app, args)
	case "/model":
		if len(args) == 0 {
			fmt.Printf("model: %s\n", app.Session.Model)
			for _, m := range app.Session.Provider.Models() {
				fmt.Printf("  %s\n", m)
			}
			return false, nil
		}
		if err := app.SwitchModel(args[0]); err != nil {
			return false, err
		}
		fmt.Printf("model: %s\n", app.Session.Model)
	case "/provider":
		if len(args) == 0 {
			fmt.Printf("provider: %s (available: %s)\n", app.Session.Provider.Name(), strings.Join(provider.Names(), ", "))
			return false, nil
		}
		if err := app.SwitchProvider(args[0]); err != nil {
			return false, err
		}
		fmt.Printf("provider: %s, model: %s\n", app.Session.Provider.Name(), app.Session.Model)
	case "/temp":
		if len(args) == 0 {
			fmt.Printf("temperature: %.2f (max %.1f)\n", app.Session.Temperature, app.Session.Provider.MaxTemperature())
			return false, nil
		}
		t, err := strconv.ParseFloat(args[0], 64)
		if err != nil || t < 0 {
			return false, fmt.Errorf("usage: /temp <value>")
		}
		if limit := app.Session.Provider.MaxTemperature(); t > limit {
			fmt.Printf("capped to provider maximum %.1f\n", limit)
			t = limit
		}
		app.Session.Temperature = t
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return false, nil
}

func handleDocCommand(app *nexus.App, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		docs := app.Store.ReferenceDocuments()
		if len(docs) == 0 {
			fmt.Println("no reference documents")
		}
		for i, doc := range docs {
			fmt.Printf("  [%d] %s (%d chars)\n", i, doc.Name, len(doc.Content))
		}
		return nil
	}

	switch args[0] {
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: /doc add <path> [name]")
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		name := filepath.Base(args[1])
		if len(args) > 2 {
			name = args[2]
		}
		oversize, err := app.Store.AddReferenceDocument(name, string(data), time.Now())
		if err != nil {
			return err
		}
		if oversize {
			fmt.Println("warning: document is very large and may crowd the context window")
		}
		fmt.Printf("added %s\n", name)
	case "remove":
		if len(args) < 2 {
			return fmt.Errorf("usage: /doc remove <index>")
		}
		i, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("usage: /doc remove <index>")
		}
		return app.Store.RemoveReferenceDocument(i)
	default:
		return fmt.Errorf("usage: /doc [list|add|remove]")
	}
	return nil
}

func confirm(in *input, prompt string) bool {
	answer, err := in.line.Prompt(prompt)
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func printDocument(title, body string) {
	fmt.Printf("--- %s ---\n", title)
	if strings.TrimSpace(body) == "" {
		fmt.Println("(empty)")
		return
	}
	fmt.Println(body)
}

func printHelp() {
	fmt.Print(`Commands:
  /save [name]           Save the session (reuses the current file by default)
  /load <file>           Load a saved session
  /sessions              List saved sessions
  /new                   Start a fresh session (continuity documents kept)
  /archive [keep]        Archive the full log and trim to the last N turns
  /sheet [clear]         Show or clear the character sheet
  /framework             Show the game-master framework
  /doc [list|add|remove] Manage reference documents
  /model [name]          Show or switch the model
  /provider [name]       Show or switch the provider
  /temp [value]          Show or set the sampling temperature
  /quit                  Exit
`)
}
