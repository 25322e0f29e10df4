package music_player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/sglre6355/harmonybot/internal/bot"
	"github.com/sglre6355/harmonybot/internal/dashboard"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/infrastructure"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/presentation/discord"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/presentation/web"
)

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var (
	_ bot.ConfigurableModule = (*MusicPlayerModule)(nil)
	_ bot.RouteProvider      = (*MusicPlayerModule)(nil)
)

// MusicPlayerModule provides music playback commands.
type MusicPlayerModule struct {
	config          *Config
	commandHandlers *discord.CommandHandlers
	autocomplete    *discord.AutocompleteHandler
	webHandlers     *web.Handlers
	queues          *usecases.QueueManager
	lavalinkAdapter *infrastructure.LavalinkAdapter

	// Event-driven components
	eventBus            *infrastructure.ChannelEventBus
	playbackHandler     *application.PlaybackEventHandler
	notificationHandler *application.NotificationEventHandler

	settingsStore io.Closer
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	if m.commandHandlers == nil {
		return nil
	}
	return m.commandHandlers.Handlers()
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			m.handleVoiceServerUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.handleVoiceStateUpdate(s, event)
		},
		func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			m.handleInteractionCreate(s, i)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) (err error) {
	if deps.Session == nil {
		return errors.New("music_player requires a Discord session")
	}
	if m.config == nil {
		if err := m.LoadConfig(); err != nil {
			return err
		}
	}

	ctx := context.Background()

	// Create event bus (needed by Lavalink adapter for publishing events)
	m.eventBus = infrastructure.NewChannelEventBus()
	defer func() {
		if err != nil {
			_ = m.releaseResources()
			m.lavalinkAdapter = nil
		}
	}()

	lavalinkAdapter, err := infrastructure.NewLavalinkAdapter(ctx, deps.Session, m.eventBus, infrastructure.LavalinkConfig{
		Address:  m.config.LavalinkAddress,
		Password: m.config.LavalinkPassword,
		Secure:   m.config.LavalinkSecure,
	})
	if err != nil {
		return err
	}
	m.lavalinkAdapter = lavalinkAdapter

	resolver, err := m.buildResolver(ctx)
	if err != nil {
		return err
	}

	repo, closer, err := m.openSettingsRepository(ctx)
	if err != nil {
		return err
	}
	m.settingsStore = closer

	settings := usecases.NewSettingsService(repo, usecases.SettingsDefaults{
		Volume:       m.config.DefaultVolume,
		MaxQueueSize: m.config.MaxQueueSize,
	})
	m.queues = usecases.NewQueueManager(
		lavalinkAdapter,
		lavalinkAdapter,
		m.eventBus,
		settings,
		usecases.QueueManagerConfig{
			IdleTimeout:  m.config.IdleTimeout,
			StartTimeout: m.config.StartTimeout,
		},
	)
	trackLoader := usecases.NewTrackLoaderService(resolver)

	var scheduler infrastructure.MessageScheduler
	if deps.Scheduler != nil {
		scheduler = deps.Scheduler
	}
	var delays infrastructure.NotifierDelays
	if deps.Config != nil {
		delays = infrastructure.NotifierDelays{
			NowPlaying: deps.Config.AutoDelete.NowPlayingDelay,
			Error:      deps.Config.AutoDelete.ErrorDelay,
		}
	}
	notifier := infrastructure.NewNotifier(deps.Session, scheduler, delays)

	// Create application event handlers
	m.playbackHandler = application.NewPlaybackEventHandler(m.queues, m.eventBus)
	m.notificationHandler = application.NewNotificationEventHandler(notifier, m.eventBus)

	// Register event handlers
	if err := m.playbackHandler.Start(); err != nil {
		return err
	}
	if err := m.notificationHandler.Start(); err != nil {
		return err
	}

	// Create presentation handlers
	m.commandHandlers = discord.NewCommandHandlers(
		m.queues,
		trackLoader,
		settings,
		infrastructure.NewVoiceStateProvider(deps.Session),
	)
	m.autocomplete = discord.NewAutocompleteHandler(trackLoader)
	m.webHandlers = web.NewHandlers(m.queues, settings)

	slog.Info("initialized music_player module",
		"resolvers", resolver.Name(),
		"settings_backend", m.config.SettingsBackend,
	)

	return nil
}

// RegisterRoutes mounts the music dashboard endpoints.
func (m *MusicPlayerModule) RegisterRoutes(r dashboard.Router) {
	if m.webHandlers == nil {
		return
	}
	m.webHandlers.Register(r)
	r.AddStats("music", func() any {
		return m.queues.Stats()
	})
}

// Shutdown cleans up module resources.
func (m *MusicPlayerModule) Shutdown() error {
	if m.queues != nil {
		ctx := context.Background()
		for _, guildID := range m.queues.ActiveGuilds() {
			if err := m.queues.Destroy(ctx, guildID); err != nil && !errors.Is(err, usecases.ErrNoActiveQueue) {
				slog.Warn("failed to destroy queue on shutdown", "guild", guildID, "error", err)
			}
		}
	}

	return m.releaseResources()
}

// releaseResources closes the bus, Lavalink and the settings store, in that
// order, and waits for pending notifications. Safe on a partially initialized module.
func (m *MusicPlayerModule) releaseResources() error {
	if m.eventBus != nil {
		m.eventBus.Close()
		m.eventBus = nil
	}
	if m.notificationHandler != nil {
		m.notificationHandler.Wait()
	}

	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.Close()
	}

	if m.settingsStore != nil {
		store := m.settingsStore
		m.settingsStore = nil
		if err := store.Close(); err != nil {
			return fmt.Errorf("failed to close settings store: %w", err)
		}
	}

	return nil
}

// buildResolver creates the configured resolvers and chains them in order.
func (m *MusicPlayerModule) buildResolver(ctx context.Context) (*infrastructure.ResolverChain, error) {
	names := m.config.ResolverNames()

	available := []ports.TrackResolver{m.lavalinkAdapter}
	for _, name := range names {
		switch name {
		case "youtube":
			r, err := infrastructure.NewYouTubeAPIResolver(ctx, m.config.YouTubeAPIKey)
			if err != nil {
				return nil, err
			}
			available = append(available, r)
		case "ytsearch":
			available = append(available, infrastructure.NewYTSearchResolver())
		case "ytmusic":
			available = append(available, infrastructure.NewYTMusicResolver())
		case "ytdlp":
			available = append(available, infrastructure.NewYTDLPResolver())
		}
	}

	return infrastructure.BuildResolverChain(strings.Join(names, ","), available...)
}

// openSettingsRepository opens the configured settings backend. The returned
// closer is nil for the in-memory backend.
func (m *MusicPlayerModule) openSettingsRepository(
	ctx context.Context,
) (ports.SettingsRepository, io.Closer, error) {
	switch m.config.SettingsBackend {
	case BackendPostgres:
		db, err := infrastructure.OpenPostgres(ctx, m.config.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := infrastructure.MigratePostgres(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return infrastructure.NewPostgresSettingsRepository(db), db, nil
	case BackendSQLite:
		repo, err := infrastructure.OpenSQLiteSettingsRepository(m.config.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	default:
		return infrastructure.NewMemorySettingsRepository(), nil, nil
	}
}

// Event handlers.

func (m *MusicPlayerModule) handleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.OnVoiceServerUpdate(event)
	}
}

func (m *MusicPlayerModule) handleVoiceStateUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.OnVoiceStateUpdate(event)
	}
}

func (m *MusicPlayerModule) handleInteractionCreate(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	if i.Type != discordgo.InteractionApplicationCommandAutocomplete || m.autocomplete == nil {
		return
	}

	data := i.ApplicationCommandData()
	if data.Name == "play" && slices.ContainsFunc(data.Options, isFocused) {
		m.autocomplete.HandlePlay(s, i)
	}
}

func isFocused(opt *discordgo.ApplicationCommandInteractionDataOption) bool {
	return opt.Focused
}
