package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's active session
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// ExamStatsChannel returns the Redis PubSub channel name for an exam's live statistics
func (r *CacheKeyStruct) ExamStatsChannel(examID string) string {
	return fmt.Sprintf("exam:%s:stats", examID)
}

var CacheKey = NewCacheKeyStruct()
