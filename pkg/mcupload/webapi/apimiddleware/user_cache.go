package apimiddleware

import (
	"sync"

	"github.com/materials-commons/mcupload/pkg/mcdb/mcmodel"
	"github.com/materials-commons/mcupload/pkg/mcdb/stor"
)

// UserCache caches user lookups by API key and by ID. Entries are never
// expired, so a changed API token requires a restart.
type UserCache struct {
	mu       sync.RWMutex
	byAPIKey map[string]*mcmodel.User
	byID     map[int]*mcmodel.User
	userStor stor.UserStor
}

func NewUserCache(userStor stor.UserStor) *UserCache {
	return &UserCache{
		byAPIKey: make(map[string]*mcmodel.User),
		byID:     make(map[int]*mcmodel.User),
		userStor: userStor,
	}
}

func (c *UserCache) GetUserByAPIKey(apikey string) (*mcmodel.User, error) {
	c.mu.RLock()
	if user, ok := c.byAPIKey[apikey]; ok {
		c.mu.RUnlock()
		return user, nil
	}
	c.mu.RUnlock()

	user, err := c.userStor.GetUserByAPIToken(apikey)
	if err != nil {
		return nil, err
	}

	c.add(user)
	return user, nil
}

func (c *UserCache) GetUserByID(id int) (*mcmodel.User, error) {
	c.mu.RLock()
	if user, ok := c.byID[id]; ok {
		c.mu.RUnlock()
		return user, nil
	}
	c.mu.RUnlock()

	user, err := c.userStor.GetUserByID(id)
	if err != nil {
		return nil, err
	}

	c.add(user)
	return user, nil
}

func (c *UserCache) add(user *mcmodel.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byID[user.ID] = user
	if user.ApiToken != "" {
		c.byAPIKey[user.ApiToken] = user
	}
}
