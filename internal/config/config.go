package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	DB struct {
		DSN string `yaml:"dsn"`
	} `yaml:"db"`
	Tron struct {
		TronscanBase string   `yaml:"tronscan_base"`
		TrongridBase string   `yaml:"trongrid_base"`
		APIKeys      []string `yaml:"api_keys"`
		GridAPIKeys  []string `yaml:"grid_api_keys"`
		USDTContract string   `yaml:"usdt_contract"`
		MinTRXAmount string   `yaml:"min_trx_amount"`
	} `yaml:"tron"`
	Telegram struct {
		APIBase       string `yaml:"api_base"`
		BotToken      string `yaml:"bot_token"`
		BotUsername   string `yaml:"bot_username"`
		AdminUsername string `yaml:"admin_username"`
		AdminChatID   int64  `yaml:"admin_chat_id"`
	} `yaml:"telegram"`
	Vault struct {
		MasterKey string `yaml:"master_key"`
	} `yaml:"vault"`
	Suppliers struct {
		NeeCCBase      string `yaml:"neecc_base"`
		RentEnergyBase string `yaml:"rentenergy_base"`
		SelfStakeBase  string `yaml:"selfstake_base"`
		TronGasBase    string `yaml:"trongas_base"`
	} `yaml:"suppliers"`
	Standing struct {
		CyclePriceUSDT string `yaml:"cycle_price_usdt"`
	} `yaml:"standing"`
	Worker struct {
		ShortIntervalSeconds int64 `yaml:"short_interval_seconds"`
		LongIntervalSeconds  int64 `yaml:"long_interval_seconds"`
		Concurrency          int   `yaml:"concurrency"`
		ItemBackoffMillis    int64 `yaml:"item_backoff_millis"`
		CallTimeoutSeconds   int64 `yaml:"call_timeout_seconds"`
		LookbackMinutes      int64 `yaml:"lookback_minutes"`
	} `yaml:"worker"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr is required")
	}
	if cfg.DB.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	if cfg.Tron.TronscanBase == "" || cfg.Tron.TrongridBase == "" {
		return nil, errors.New("tron config is incomplete")
	}
	if cfg.Vault.MasterKey == "" {
		return nil, errors.New("vault.master_key is required")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Worker.ShortIntervalSeconds <= 0 {
		cfg.Worker.ShortIntervalSeconds = 60
	}
	if cfg.Worker.LongIntervalSeconds <= 0 {
		cfg.Worker.LongIntervalSeconds = 600
	}
	if cfg.Worker.Concurrency <= 0 {
		cfg.Worker.Concurrency = 5
	}
	if cfg.Worker.CallTimeoutSeconds <= 0 {
		cfg.Worker.CallTimeoutSeconds = 10
	}
	if cfg.Worker.ItemBackoffMillis <= 0 {
		cfg.Worker.ItemBackoffMillis = 1000
	}
	if cfg.Worker.LookbackMinutes <= 0 {
		cfg.Worker.LookbackMinutes = 30
	}
	if cfg.Telegram.APIBase == "" {
		cfg.Telegram.APIBase = "https://api.telegram.org"
	}
	if cfg.Tron.USDTContract == "" {
		cfg.Tron.USDTContract = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	}
	if cfg.Tron.MinTRXAmount == "" {
		cfg.Tron.MinTRXAmount = "1"
	}
	if cfg.Standing.CyclePriceUSDT == "" {
		cfg.Standing.CyclePriceUSDT = "6"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("TRONSCAN_BASE"); v != "" {
		cfg.Tron.TronscanBase = v
	}
	if v := os.Getenv("TRONGRID_BASE"); v != "" {
		cfg.Tron.TrongridBase = v
	}
	if v := os.Getenv("TRON_API_KEYS"); v != "" {
		cfg.Tron.APIKeys = splitCommaList(v)
	}
	if v := os.Getenv("GRID_API_KEYS"); v != "" {
		cfg.Tron.GridAPIKeys = splitCommaList(v)
	}
	if v := os.Getenv("USDT_CONTRACT"); v != "" {
		cfg.Tron.USDTContract = v
	}
	if v := os.Getenv("MIN_TRX_AMOUNT"); v != "" {
		cfg.Tron.MinTRXAmount = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_BOT_USERNAME"); v != "" {
		cfg.Telegram.BotUsername = v
	}
	if v := os.Getenv("TELEGRAM_ADMIN_USERNAME"); v != "" {
		cfg.Telegram.AdminUsername = v
	}
	if v := os.Getenv("TELEGRAM_ADMIN_CHAT_ID"); v != "" {
		cfg.Telegram.AdminChatID = atoi64Or(cfg.Telegram.AdminChatID, v)
	}
	if v := os.Getenv("VAULT_MASTER_KEY"); v != "" {
		cfg.Vault.MasterKey = v
	}
	if v := os.Getenv("STANDING_CYCLE_PRICE_USDT"); v != "" {
		cfg.Standing.CyclePriceUSDT = v
	}
	if v := os.Getenv("WORKER_SHORT_INTERVAL_SECONDS"); v != "" {
		cfg.Worker.ShortIntervalSeconds = atoi64Or(cfg.Worker.ShortIntervalSeconds, v)
	}
	if v := os.Getenv("WORKER_LONG_INTERVAL_SECONDS"); v != "" {
		cfg.Worker.LongIntervalSeconds = atoi64Or(cfg.Worker.LongIntervalSeconds, v)
	}
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		cfg.Worker.Concurrency = atoiOr(cfg.Worker.Concurrency, v)
	}
	if v := os.Getenv("WORKER_ITEM_BACKOFF_MILLIS"); v != "" {
		cfg.Worker.ItemBackoffMillis = atoi64Or(cfg.Worker.ItemBackoffMillis, v)
	}
	if v := os.Getenv("WORKER_CALL_TIMEOUT_SECONDS"); v != "" {
		cfg.Worker.CallTimeoutSeconds = atoi64Or(cfg.Worker.CallTimeoutSeconds, v)
	}
	if v := os.Getenv("WORKER_LOOKBACK_MINUTES"); v != "" {
		cfg.Worker.LookbackMinutes = atoi64Or(cfg.Worker.LookbackMinutes, v)
	}
}

func splitCommaList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func atoiOr(fallback int, v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func atoi64Or(fallback int64, v string) int64 {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
