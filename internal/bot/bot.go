package bot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/redtalon/talonbot/internal/board"
	"github.com/redtalon/talonbot/internal/gamefile"
	"github.com/redtalon/talonbot/internal/identity"
	platformdiscord "github.com/redtalon/talonbot/internal/platform/discord"
	"github.com/redtalon/talonbot/internal/store"
	"github.com/redtalon/talonbot/internal/sysmon"
	"github.com/redtalon/talonbot/internal/workshop"
)

// workshopTTL bounds how long scraped mod details are reused.
const workshopTTL = 10 * time.Minute

// server bundles everything tied to one managed game server.
type server struct {
	conf        ServerConf
	stats       *gamefile.StatsPoller
	config      *gamefile.ConfigPoller
	players     *board.Players
	carousel    *board.Carousel
	snapshotter *gamefile.Snapshotter
}

// Bot is the assembled application.
type Bot struct {
	cfg     *Config
	session *discordgo.Session
	store   *store.Store
	cache   *identity.Cache
	syncer  *board.Synchronizer
	sched   *board.Scheduler
	roster  *board.Roster
	util    *board.Utilization
	shop    *workshop.Client
	servers []*server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds the bot from its configuration. Nothing touches the
// network until Start.
func New(cfg *Config) (*Bot, error) {
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentMessageContent

	msgr := platformdiscord.New(session)
	syncer := board.NewSynchronizer(msgr, st)
	cache := identity.New(st)
	shop := workshop.NewClient(workshopTTL)

	b := &Bot{
		cfg:     cfg,
		session: session,
		store:   st,
		cache:   cache,
		syncer:  syncer,
		sched:   board.NewScheduler(),
		roster:  board.NewRoster(syncer, st, cfg.Channels.Stats),
		util:    board.NewUtilization(syncer, sysmon.Sample, cfg.Channels.Stats),
		shop:    shop,
	}

	for _, sc := range cfg.Servers {
		srv := &server{
			conf:   sc,
			stats:  gamefile.NewStatsPoller(sc.StatsPath),
			config: gamefile.NewConfigPoller(sc.ConfigPath),
		}
		srv.players = board.NewPlayers(
			syncer, srv.stats, srv.config, cache, st,
			sysmon.PortBound, cfg.Channels.ServerStatus, sc.Number,
		)
		if sc.ModsChannelID != "" {
			srv.carousel = board.NewCarousel(msgr, srv.config, shop, sc.ModsChannelID)
		}
		if sc.LoadoutDir != "" {
			srv.snapshotter = gamefile.NewSnapshotter(sc.LoadoutDir, cfg.MaxSnapshots)
		}
		b.servers = append(b.servers, srv)
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)
	session.AddHandler(b.onMemberAdd)
	session.AddHandler(b.onMemberRemove)
	session.AddHandler(b.onMemberUpdate)
	session.AddHandler(b.onMessage)
	session.AddHandler(b.onReactionAdd)

	return b, nil
}

// Start opens the gateway, registers the slash commands and launches
// the file watchers and the board scheduler.
func (b *Bot) Start(ctx context.Context) error {
	ctx, b.cancel = context.WithCancel(ctx)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}

	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	for _, srv := range b.servers {
		b.watch(ctx, fmt.Sprintf("stats %d", srv.conf.Number), srv.stats.Watch)
		b.watch(ctx, fmt.Sprintf("config %d", srv.conf.Number), srv.config.Watch)
		if srv.snapshotter != nil {
			if err := srv.snapshotter.Start(); err != nil {
				log.Printf("[bot] loadout snapshotter %d: %v", srv.conf.Number, err)
			}
		}
	}

	b.sched.Add(board.RosterKey, b.cfg.Intervals.Roster.Std(), b.roster.Sync)
	b.sched.Add(board.UtilizationKey, b.cfg.Intervals.Utilization.Std(), b.util.Sync)
	for _, srv := range b.servers {
		srv := srv
		b.sched.Add(board.PlayersKey(srv.conf.Number), b.cfg.Intervals.Players.Std(), srv.players.Sync)
		if srv.carousel != nil {
			b.sched.Add(
				fmt.Sprintf("mods_carousel_%d", srv.conf.Number),
				b.cfg.Intervals.Carousel.Std(),
				srv.carousel.Tick,
			)
		}
	}
	b.sched.Start(ctx)

	log.Printf("[bot] started, guild %s, %d servers", b.cfg.GuildID, len(b.servers))
	return nil
}

// Stop tears everything down in reverse order of Start.
func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.sched.Stop()
	for _, srv := range b.servers {
		if srv.snapshotter != nil {
			srv.snapshotter.Stop()
		}
	}
	b.wg.Wait()
	if err := b.session.Close(); err != nil {
		log.Printf("[bot] close session: %v", err)
	}
	if err := b.store.Close(); err != nil {
		log.Printf("[bot] close store: %v", err)
	}
	log.Printf("[bot] stopped")
}

func (b *Bot) watch(ctx context.Context, name string, run func(context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[bot] watcher %s: %v", name, err)
		}
	}()
}

// serverByNumber returns the server entry for a configured number.
func (b *Bot) serverByNumber(number int) *server {
	for _, srv := range b.servers {
		if srv.conf.Number == number {
			return srv
		}
	}
	return nil
}

// serverByModsChannel maps a mods channel id back to its server.
func (b *Bot) serverByModsChannel(channelID string) *server {
	for _, srv := range b.servers {
		if srv.conf.ModsChannelID == channelID && srv.carousel != nil {
			return srv
		}
	}
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, e *discordgo.Ready) {
	log.Printf("[bot] logged in as %s#%s", e.User.Username, e.User.Discriminator)
}

// logToChannel mirrors notable actions into the configured log channel.
func (b *Bot) logToChannel(description string, color int) {
	if b.cfg.Channels.Logs == "" {
		return
	}
	_, err := b.session.ChannelMessageSendEmbed(b.cfg.Channels.Logs, &discordgo.MessageEmbed{
		Description: description,
		Color:       color,
	})
	if err != nil {
		log.Printf("[bot] log channel: %v", err)
	}
}
