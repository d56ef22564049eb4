package bot

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TeamRole maps a Discord role to a registry team and the in-game
// player group that mirrors it. Team may be empty for roles that only
// carry a player group.
type TeamRole struct {
	Team  string `yaml:"team"`
	Group string `yaml:"group"`
}

// ServerConf describes one managed game server.
type ServerConf struct {
	Number        int    `yaml:"number"`
	ConfigPath    string `yaml:"config_path"`
	StatsPath     string `yaml:"stats_path"`
	GroupsPath    string `yaml:"groups_path"`
	LoadoutDir    string `yaml:"loadout_dir"`
	ModsChannelID string `yaml:"mods_channel_id"`
}

// Channels holds the channel ids the bot posts into.
type Channels struct {
	Stats        string `yaml:"stats"`
	ServerStatus string `yaml:"server_status"`
	Logs         string `yaml:"logs"`
	Rules        string `yaml:"rules"`
	Operations   string `yaml:"operations"`
}

// Duration accepts Go duration strings ("30s", "10m") in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Intervals configures the board cadences. Zero values pick defaults.
type Intervals struct {
	Roster      Duration `yaml:"roster"`
	Utilization Duration `yaml:"utilization"`
	Players     Duration `yaml:"players"`
	Carousel    Duration `yaml:"carousel"`
}

// Config is the bot's YAML configuration file.
type Config struct {
	Token    string   `yaml:"token"`
	GuildID  string   `yaml:"guild_id"`
	AdminIDs []string `yaml:"admin_ids"`

	Channels       Channels `yaml:"channels"`
	RulesMessageID string   `yaml:"rules_message_id"`
	GreenRoleID    string   `yaml:"green_role_id"`
	GMRoleIDs      []string `yaml:"gm_role_ids"`

	// Role id to team/group mapping used by the member update handler.
	TeamRoles map[string]TeamRole `yaml:"team_roles"`

	Servers []ServerConf `yaml:"servers"`

	DatabasePath string `yaml:"database_path"`
	ProfileDir   string `yaml:"profile_dir"`
	LogDir       string `yaml:"log_dir"`

	RestartCommand []string `yaml:"restart_command"`
	UpdateCommand  []string `yaml:"update_command"`

	Intervals    Intervals `yaml:"intervals"`
	MaxSnapshots int       `yaml:"max_snapshots"`
}

// LoadConfig reads and validates the configuration file.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("token is required")
	}
	if c.GuildID == "" {
		return fmt.Errorf("guild_id is required")
	}
	if c.Channels.Stats == "" || c.Channels.ServerStatus == "" {
		return fmt.Errorf("channels.stats and channels.server_status are required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if len(c.Servers) == 0 {
		return fmt.Errorf("at least one server entry is required")
	}
	seen := make(map[int]bool)
	for i, srv := range c.Servers {
		if srv.Number <= 0 {
			return fmt.Errorf("servers[%d]: number must be positive", i)
		}
		if seen[srv.Number] {
			return fmt.Errorf("servers[%d]: duplicate number %d", i, srv.Number)
		}
		seen[srv.Number] = true
		if srv.ConfigPath == "" || srv.StatsPath == "" {
			return fmt.Errorf("server %d: config_path and stats_path are required", srv.Number)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Intervals.Roster == 0 {
		c.Intervals.Roster = Duration(10 * time.Minute)
	}
	if c.Intervals.Utilization == 0 {
		c.Intervals.Utilization = Duration(30 * time.Second)
	}
	if c.Intervals.Players == 0 {
		c.Intervals.Players = Duration(30 * time.Second)
	}
	if c.Intervals.Carousel == 0 {
		c.Intervals.Carousel = Duration(time.Minute)
	}
	if c.MaxSnapshots == 0 {
		c.MaxSnapshots = 6
	}
}

// IsAdmin reports whether a Discord user id is configured as an admin.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Server returns the config entry for a server number.
func (c *Config) Server(number int) (ServerConf, bool) {
	for _, srv := range c.Servers {
		if srv.Number == number {
			return srv, true
		}
	}
	return ServerConf{}, false
}
