package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// InitState is the collaborator-facing description of where the ledger
// lives on disk.
type InitState struct {
	DataDir      string `json:"dataDir"`
	DatabasePath string `json:"databasePath"`
}

// Init registers every config default. Getters call it themselves, so
// it only needs an explicit call where viper keys are read directly.
func Init() {
	setDefaults()
}

func setDefaults() {
	viper.SetDefault("data.dir", "./data")
	viper.SetDefault("jwt.secret_key", "dev-secret-change-me")
	viper.SetDefault("jwt.access_ttl_minutes", 30)
	viper.SetDefault("jwt.refresh_ttl_days", 30)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)
	viper.SetDefault("bootstrap.email", "owner@localhost")
	viper.SetDefault("bootstrap.password", "")
}

// DataDir returns the directory holding the ledger database.
func DataDir() string {
	setDefaults()
	return viper.GetString("data.dir")
}

// DatabasePath returns the SQLite file path; database.path overrides the
// default location under the data dir.
func DatabasePath() string {
	setDefaults()
	if p := viper.GetString("database.path"); p != "" {
		return p
	}
	return filepath.Join(DataDir(), "truecost.db")
}

func GetInitState() InitState {
	return InitState{DataDir: DataDir(), DatabasePath: DatabasePath()}
}

func JWTSecret() string {
	setDefaults()
	return viper.GetString("jwt.secret_key")
}

func AccessTokenTTL() time.Duration {
	setDefaults()
	return time.Duration(viper.GetInt("jwt.access_ttl_minutes")) * time.Minute
}

func RefreshTokenTTL() time.Duration {
	setDefaults()
	return time.Duration(viper.GetInt("jwt.refresh_ttl_days")) * 24 * time.Hour
}
