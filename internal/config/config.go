package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	PaymentTypeExcelFile   = "EXCEL_FILE"
	PaymentTypeGoogleSheet = "GOOGLE_SHEET"
)

type Config struct {
	App      AppConfig
	Bot      BotConfig
	Support  SupportConfig
	Payment  PaymentConfig
	Email    EmailConfig
	Database DatabaseConfig
	API      APIConfig
	Log      LogConfig
}

type AppConfig struct {
	TestMode bool
	Timezone string `validate:"required,timezone"`

	location *time.Location
}

// Location returns the timezone used to compute the current day.
func (a AppConfig) Location() *time.Location {
	if a.location == nil {
		return time.UTC
	}
	return a.location
}

type BotConfig struct {
	Token           string   `validate:"required"`
	AuthorizedUsers []string `validate:"required,min=1,dive,required"`
}

type SupportConfig struct {
	Email    string `validate:"omitempty,email"`
	Telegram string
	Website  string `validate:"omitempty,url"`
}

type PaymentConfig struct {
	Type           string `validate:"oneof=EXCEL_FILE GOOGLE_SHEET"`
	ExcelFile      string `validate:"required_if=Type EXCEL_FILE"`
	GoogleSheetID  string `validate:"required_if=Type GOOGLE_SHEET"`
	GoogleCredPath string `validate:"required_if=Type GOOGLE_SHEET"`

	EmailCol      string `validate:"column,nefield=UsernameCol,nefield=ExpirationCol"`
	UsernameCol   string `validate:"column,nefield=ExpirationCol"`
	ExpirationCol string `validate:"column"`
	DateFormat    string `validate:"required"`

	CheckOnJoin  bool
	CheckPeriod  time.Duration `validate:"gte=0"`
	CheckChatIDs []int64       `validate:"required_unless=CheckPeriod 0"`
}

type EmailConfig struct {
	Enabled  bool
	From     string `validate:"required_if=Enabled true,omitempty,email"`
	ReplyTo  string `validate:"omitempty,email"`
	Host     string `validate:"required_if=Enabled true"`
	Port     int    `validate:"required_if=Enabled true,omitempty,min=1,max=65535"`
	User     string
	Password string
	Subject  string `validate:"required_if=Enabled true"`
	BodyFile string `validate:"required_if=Enabled true"`

	Body string `validate:"-"`
}

type DatabaseConfig struct {
	URL string `validate:"required"`
}

type APIConfig struct {
	Addr        string
	TokenSecret string `validate:"required_with=Addr"`
}

type LogConfig struct {
	Level    string
	FileName string
}

// Load reads the configuration from the environment, after loading the given
// env files (or ./.env when present).
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, errors.Wrap(err, "failed to load env files")
		}
	} else if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load .env")
	}

	var (
		cfg = &Config{}
		p   = &envParser{}
	)

	cfg.App = AppConfig{
		TestMode: p.bool("APP_TEST_MODE", false),
		Timezone: getEnvWithDefault("APP_TIMEZONE", "UTC"),
	}
	cfg.Bot = BotConfig{
		Token:           os.Getenv("BOT_TOKEN"),
		AuthorizedUsers: getEnvAsList("BOT_AUTHORIZED_USERS"),
	}
	cfg.Support = SupportConfig{
		Email:    os.Getenv("SUPPORT_EMAIL"),
		Telegram: strings.TrimPrefix(os.Getenv("SUPPORT_TELEGRAM"), "@"),
		Website:  os.Getenv("PAYMENT_WEBSITE"),
	}
	cfg.Payment = PaymentConfig{
		Type:           strings.ToUpper(getEnvWithDefault("PAYMENT_TYPE", PaymentTypeExcelFile)),
		ExcelFile:      os.Getenv("PAYMENT_EXCEL_FILE"),
		GoogleSheetID:  os.Getenv("PAYMENT_GOOGLE_SHEET_ID"),
		GoogleCredPath: os.Getenv("PAYMENT_GOOGLE_CRED_PATH"),
		EmailCol:       strings.ToUpper(getEnvWithDefault("PAYMENT_EMAIL_COL", "A")),
		UsernameCol:    strings.ToUpper(getEnvWithDefault("PAYMENT_USERNAME_COL", "B")),
		ExpirationCol:  strings.ToUpper(getEnvWithDefault("PAYMENT_EXPIRATION_COL", "C")),
		DateFormat:     getEnvWithDefault("PAYMENT_DATE_FORMAT", "%d/%m/%Y"),
		CheckOnJoin:    p.bool("PAYMENT_CHECK_ON_JOIN", true),
		CheckPeriod:    p.duration("PAYMENT_CHECK_PERIOD", 0),
		CheckChatIDs:   p.int64List("PAYMENT_CHECK_CHAT_IDS"),
	}
	cfg.Email = EmailConfig{
		Enabled:  p.bool("EMAIL_ENABLED", false),
		From:     os.Getenv("EMAIL_FROM"),
		ReplyTo:  os.Getenv("EMAIL_REPLY_TO"),
		Host:     os.Getenv("EMAIL_HOST"),
		Port:     p.int("EMAIL_PORT", 587),
		User:     os.Getenv("EMAIL_USER"),
		Password: os.Getenv("EMAIL_PASSWORD"),
		Subject:  os.Getenv("EMAIL_SUBJECT"),
		BodyFile: os.Getenv("EMAIL_BODY_FILE"),
	}
	cfg.Database = DatabaseConfig{
		URL: os.Getenv("DATABASE_URL"),
	}
	cfg.API = APIConfig{
		Addr:        getEnvIfSet("API_ADDR", ":8080"),
		TokenSecret: os.Getenv("API_TOKEN_SECRET"),
	}
	cfg.Log = LogConfig{
		Level:    getEnvWithDefault("LOG_LEVEL", "INFO"),
		FileName: os.Getenv("LOG_FILE_NAME"),
	}

	if p.err != nil {
		return nil, p.err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid APP_TIMEZONE %q", cfg.App.Timezone)
	}
	cfg.App.location = loc

	if cfg.Email.Enabled {
		body, err := os.ReadFile(cfg.Email.BodyFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read EMAIL_BODY_FILE %q", cfg.Email.BodyFile)
		}
		cfg.Email.Body = string(body)
	}

	return cfg, nil
}

// Validate checks field rules and cross-field rules of cfg.
func Validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("column", isColumn); err != nil {
		return err
	}
	if err := v.Struct(cfg); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

func isColumn(fl validator.FieldLevel) bool {
	col := fl.Field().String()
	return len(col) == 1 && col[0] >= 'A' && col[0] <= 'Z'
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIfSet differs from getEnvWithDefault: a variable set to "" stays empty.
func getEnvIfSet(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var res []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimPrefix(strings.TrimSpace(item), "@"); item != "" {
			res = append(res, item)
		}
	}
	return res
}

// envParser remembers the first conversion error so Load can report it once.
type envParser struct {
	err error
}

func (p *envParser) fail(key string, err error) {
	if p.err == nil {
		p.err = errors.Wrapf(err, "invalid value for %s", key)
	}
}

func (p *envParser) bool(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return b
}

func (p *envParser) int(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return i
}

func (p *envParser) duration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}

func (p *envParser) int64List(key string) []int64 {
	var res []int64
	for _, item := range strings.Split(os.Getenv(key), ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			p.fail(key, err)
			continue
		}
		res = append(res, id)
	}
	return res
}
