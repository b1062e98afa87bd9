package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/adwatch/adwatch/internal/adapters/driven/config/file"
	"github.com/adwatch/adwatch/internal/adapters/driven/notify/telegram"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the search criteria, delivery options and the
Telegram credentials.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsTelegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Configure Telegram delivery",
	Long: `Prompts for the bot token and chat id and sends a test message.
The token can also be supplied via the TELEGRAM_BOT_TOKEN environment
variable or a .env file, which always wins over the config file.`,
	RunE: runSettingsTelegram,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Sets one configuration key. Known keys:

  search.city               site city identifier (e.g. 5000 for Tel Aviv)
  search.neighborhoods      comma-separated neighborhood names
  search.min_rooms          minimum room count
  search.max_rooms          maximum room count
  search.max_price          price ceiling
  search.parking            require parking (true/false)
  search.shelter            require a shelter (true/false)
  search.excluded_streets   comma-separated street names to drop
  notify.concurrency        parallel notification sends
  notify.attempts           delivery attempts per listing
  notify.retry_delay_seconds  delay between delivery attempts
  notify.removals           notify when listings leave the site (true/false)
  watch.schedule            cron schedule for the watch daemon
  source.requests_per_second  fetch pacing`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsTelegramCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config not loaded")
	}

	criteria := configStore.Criteria()
	cmd.Println("[Search]")
	cmd.Printf("  City:             %s\n", orUnset(criteria.City))
	cmd.Printf("  Neighborhoods:    %s\n", orUnset(strings.Join(criteria.Neighborhoods, ", ")))
	cmd.Printf("  Rooms:            %s - %s\n", formatFloat(criteria.MinRooms), formatFloat(criteria.MaxRooms))
	cmd.Printf("  Max price:        %d\n", criteria.MaxPrice)
	cmd.Printf("  Parking:          %t\n", criteria.Parking)
	cmd.Printf("  Shelter:          %t\n", criteria.Shelter)
	cmd.Printf("  Excluded streets: %s\n", orUnset(strings.Join(criteria.ExcludedStreets, ", ")))
	cmd.Println()

	settings := configStore.Notify()
	cmd.Println("[Notify]")
	cmd.Printf("  Concurrency:    %d\n", settings.Concurrency)
	cmd.Printf("  Attempts:       %d\n", settings.Attempts)
	cmd.Printf("  Retry delay:    %s\n", settings.RetryDelay)
	cmd.Printf("  Removal notice: %t\n", settings.Removals)
	cmd.Println()

	cmd.Println("[Watch]")
	cmd.Printf("  Schedule: %s\n", configStore.Schedule())
	cmd.Println()

	token, chatID := configStore.TelegramCredentials()
	cmd.Println("[Telegram]")
	if token == "" {
		cmd.Println("  Token:   (not set)")
	} else {
		cmd.Printf("  Token:   %s\n", maskToken(token))
	}
	cmd.Printf("  Chat id: %s\n", orUnset(chatID))
	if token == "" || chatID == "" {
		cmd.Println("  Status:  not configured, run 'adwatch settings telegram'")
	} else {
		cmd.Println("  Status:  configured")
	}
	return nil
}

func runSettingsTelegram(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config not loaded")
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Print("Bot token (input hidden): ")
	token := readPassword()
	cmd.Println()
	if token == "" {
		return errors.New("token must not be empty")
	}

	cmd.Print("Chat id: ")
	chatID := readLine(reader)
	if chatID == "" {
		return errors.New("chat id must not be empty")
	}

	n, err := telegram.NewNotifier(telegram.Options{Token: token, ChatID: chatID})
	if err != nil {
		return fmt.Errorf("configuring notifier: %w", err)
	}

	cmd.Println("Sending test message...")
	if err := n.SendText(cmd.Context(), "adwatch is configured and watching."); err != nil {
		return fmt.Errorf("test message failed, nothing saved: %w", err)
	}

	if err := configStore.Set(file.KeyTelegramToken, token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	if err := configStore.Set(file.KeyTelegramChatID, chatID); err != nil {
		return fmt.Errorf("saving chat id: %w", err)
	}

	cmd.Println("Telegram configured.")
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config not loaded")
	}

	key, raw := args[0], args[1]
	value, err := parseSettingValue(key, raw)
	if err != nil {
		return err
	}

	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	cmd.Printf("%s = %v\n", key, value)
	return nil
}

// parseSettingValue converts the raw argument to the type the key needs.
func parseSettingValue(key, raw string) (any, error) {
	switch key {
	case file.KeySearchCity, file.KeyWatchSchedule, file.KeySourceBaseURL,
		file.KeySourceUserAgent, file.KeyTelegramChatID:
		return raw, nil

	case file.KeySearchNeighborhoods, file.KeySearchExcludedStreets:
		parts := strings.Split(raw, ",")
		values := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				values = append(values, p)
			}
		}
		return values, nil

	case file.KeySearchMinRooms, file.KeySearchMaxRooms, file.KeySourceRequestRate:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s needs a number, got %q", key, raw)
		}
		return v, nil

	case file.KeySearchMaxPrice, file.KeyNotifyConcurrency,
		file.KeyNotifyAttempts, file.KeyNotifyRetryDelay:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s needs an integer, got %q", key, raw)
		}
		return v, nil

	case file.KeySearchParking, file.KeySearchShelter, file.KeyNotifyRemovals:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s needs true or false, got %q", key, raw)
		}
		return v, nil

	case file.KeyTelegramToken:
		return nil, errors.New("use 'adwatch settings telegram' to set the token")

	default:
		return nil, fmt.Errorf("unknown setting %q", key)
	}
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read without echo so the token never lands in scrollback.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
