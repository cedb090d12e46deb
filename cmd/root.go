package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/multiwa/multiwa/autoreply"
	"github.com/multiwa/multiwa/campaign"
	"github.com/multiwa/multiwa/core/config"
	"github.com/multiwa/multiwa/core/database"
	domainApp "github.com/multiwa/multiwa/domains/app"
	domainAutoReply "github.com/multiwa/multiwa/domains/autoreply"
	domainCampaign "github.com/multiwa/multiwa/domains/campaign"
	domainSession "github.com/multiwa/multiwa/domains/session"
	infraWhatsmeow "github.com/multiwa/multiwa/infrastructure/whatsmeow"
	"github.com/multiwa/multiwa/integrations/openai"
	"github.com/multiwa/multiwa/pkg/crypto"
	"github.com/multiwa/multiwa/pkg/utils"
	"github.com/multiwa/multiwa/repository"
	"github.com/multiwa/multiwa/session"
	"github.com/multiwa/multiwa/ui/websocket"
	"github.com/multiwa/multiwa/usecase"
)

var (
	// Flag overrides, applied on top of the environment config.
	flagPort      string
	flagDebug     bool
	flagBasicAuth []string
	flagBasePath  string
	flagDBDriver  string

	// Core components
	sessionManager    *session.Manager
	campaignScheduler *campaign.Scheduler

	// Stores
	campaignStore   *repository.CampaignStore
	autoReplyStore  *repository.AutoReplyStore
	messageLogStore *repository.MessageLogStore
	settingsStore   *repository.SettingsStore

	// Usecases
	appUsecase       domainApp.IAppUsecase
	sessionUsecase   domainSession.ISessionUsecase
	campaignUsecase  domainCampaign.ICampaignUsecase
	autoReplyUsecase domainAutoReply.IAutoReplyUsecase
)

var rootCmd = &cobra.Command{
	Use:   "multiwa",
	Short: "Multi-session WhatsApp API with auto replies and bulk campaigns",
	Long: `Runs multiple WhatsApp sessions behind one HTTP API, with
rule-based auto replies, AI-generated responses and scheduled bulk
campaigns.`,
}

func init() {
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()
	cobra.OnInitialize(initApp)
}

func initFlags() {
	rootCmd.PersistentFlags().StringVarP(
		&flagPort,
		"port", "p",
		"",
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&flagDebug,
		"debug", "d",
		false,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&flagBasicAuth,
		"basic-auth", "b",
		nil,
		"basic auth credential | -b=yourUsername:yourPassword",
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagBasePath,
		"base-path", "",
		"",
		`base path for subpath deployment --base-path <string> | example: --base-path="/multiwa"`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagDBDriver,
		"db-driver", "",
		"",
		`database driver --db-driver <string> | example: --db-driver=postgres (default: sqlite)`,
	)
}

func initApp() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	if flagPort != "" {
		cfg.App.Port = flagPort
	}
	if flagDebug {
		cfg.App.Debug = true
	}
	if len(flagBasicAuth) > 0 {
		cfg.App.BasicAuth = flagBasicAuth
	}
	if flagBasePath != "" {
		cfg.App.BasePath = flagBasePath
	}
	if flagDBDriver != "" {
		cfg.Database.Driver = flagDBDriver
	}

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	crypto.SetEncryptionKey(cfg.Security.SecretKey)

	if err := utils.CreateFolder(cfg.Paths.Storages, cfg.Paths.Statics); err != nil {
		logrus.Errorln(err)
	}

	if _, err := database.NewDatabase(cfg); err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := database.GetSQLDB()
	if err != nil {
		logrus.Fatalf("failed to get sql connection: %v", err)
	}

	campaignStore, err = repository.NewCampaignStore(sqlDB, cfg.Database.Driver)
	if err != nil {
		logrus.Fatalf("failed to init campaign store: %v", err)
	}
	settingsStore, err = repository.NewSettingsStore(sqlDB, cfg.Database.Driver)
	if err != nil {
		logrus.Fatalf("failed to init settings store: %v", err)
	}
	autoReplyStore, err = repository.NewAutoReplyStore(database.GlobalDB)
	if err != nil {
		logrus.Fatalf("failed to init auto reply store: %v", err)
	}
	messageLogStore, err = repository.NewMessageLogStore(database.GlobalDB)
	if err != nil {
		logrus.Fatalf("failed to init message log store: %v", err)
	}

	sessionStore := session.NewStore(cfg.Session.MetadataFile)
	sessionManager = session.NewManager(cfg, infraWhatsmeow.NewFactory(cfg), sessionStore, websocket.Sink{})

	generator := newReplyGenerator(cfg)
	pipeline := usecase.NewAutoReplyPipeline(autoReplyStore, messageLogStore, sessionManager, generator)
	sessionManager.SetInboundHandler(pipeline.Handle)

	campaignScheduler = campaign.NewScheduler(cfg.Campaign, campaignStore, usecase.NewCampaignSender(sessionManager))

	appUsecase = usecase.NewAppService(settingsStore)
	sessionUsecase = usecase.NewSessionService(sessionManager, messageLogStore)
	campaignUsecase = usecase.NewCampaignService(campaignStore, sessionManager)
	autoReplyUsecase = usecase.NewAutoReplyService(autoReplyStore)
}

// newReplyGenerator builds the AI generator. The API key is resolved on
// every call so a key saved through the settings API wins over the
// environment without a restart.
func newReplyGenerator(cfg *config.Config) autoreply.ReplyGenerator {
	return openai.NewGenerator(cfg.AI.Model, cfg.AI.SystemPrompt, func(ctx context.Context) (string, error) {
		if settingsStore != nil {
			key, err := settingsStore.GetAIAPIKey(ctx)
			if err == nil && key != "" {
				return key, nil
			}
			if err != nil {
				logrus.WithError(err).Warn("[OPENAI] Failed to read stored API key, falling back to env")
			}
		}
		return cfg.AI.APIKey, nil
	})
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of the scheduler and all sessions.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if campaignScheduler != nil {
		campaignScheduler.Stop()
	}

	if sessionManager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sessionManager.Cleanup(ctx)
	}

	logrus.Info("[APP] Application stopped cleanly.")
}

func joinOrigins(origins []string) string {
	return strings.Join(origins, ", ")
}
