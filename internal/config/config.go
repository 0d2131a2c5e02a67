package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	DataDir string

	// SessionDBPath is the sqlite file finished-session summaries are
	// appended to. The session store itself is in-memory; this is the
	// durable sink endSession writes through to.
	SessionDBPath string

	// SessionTTL bounds how long an untouched session survives in the store
	// before the TTL sweep evicts it. Moves live inside the session's board,
	// so they share SessionTTL; MoveListTTL is read from the environment but
	// nothing in the core consumes it.
	SessionTTL  time.Duration
	MoveListTTL time.Duration
	CooldownTTL time.Duration

	// QueueRangeDefault, QueueRangeLarge and QueueRangeWaitBoost parameterize
	// the rank-window matcher (see Queue.rangeFor in package matchmaking).
	QueueRangeDefault   int
	QueueRangeLarge     int
	QueueLargeThreshold int
	QueueRangeWaitBoost time.Duration

	IdleSweepInterval time.Duration
	IdleUserTimeout   time.Duration
	FallbackMatchWait time.Duration

	TournamentCapacity int
}

func FromEnv() Config {
	dataDir := getenv("CORECHESS_DATA_DIR", "./data")

	return Config{
		DataDir:             dataDir,
		SessionDBPath:       getenv("CORECHESS_SESSION_DB_PATH", filepath.Join(dataDir, "sessions.sqlite")),
		SessionTTL:          getenvDuration("CORECHESS_SESSION_TTL", 30*time.Minute),
		MoveListTTL:         getenvDuration("CORECHESS_MOVE_LIST_TTL", 30*time.Minute),
		CooldownTTL:         getenvDuration("CORECHESS_COOLDOWN_TTL", 10*time.Second),
		QueueRangeDefault:   getenvInt("CORECHESS_QUEUE_RANGE_DEFAULT", 100),
		QueueRangeLarge:     getenvInt("CORECHESS_QUEUE_RANGE_LARGE", 50),
		QueueLargeThreshold: getenvInt("CORECHESS_QUEUE_LARGE_THRESHOLD", 1000),
		QueueRangeWaitBoost: getenvDuration("CORECHESS_QUEUE_WAIT_BOOST", 5*time.Second),
		IdleSweepInterval:   getenvDuration("CORECHESS_IDLE_SWEEP_INTERVAL", 60*time.Second),
		IdleUserTimeout:     getenvDuration("CORECHESS_IDLE_USER_TIMEOUT", 5*time.Minute),
		FallbackMatchWait:   getenvDuration("CORECHESS_FALLBACK_MATCH_WAIT", 10*time.Second),
		TournamentCapacity:  getenvInt("CORECHESS_TOURNAMENT_CAPACITY", 64),
	}
}

func getenv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getenvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getenvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
