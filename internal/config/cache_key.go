package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionLockKey returns the key holding the single-connection lock of a session.
func (r *CacheKeyStruct) SessionLockKey(tokenHash string) string {
	return fmt.Sprintf("assessment:%s:lock", tokenHash)
}

// MonitorChannel returns the Redis PubSub channel name for a session's proctor feed
func (r *CacheKeyStruct) MonitorChannel(tokenHash string) string {
	return fmt.Sprintf("assessment:%s:monitor", tokenHash)
}

var CacheKey = NewCacheKeyStruct()
