package apimiddleware

import (
	"sync"

	"github.com/datican/datarepo/pkg/drdb/model"
	"github.com/datican/datarepo/pkg/drdb/stor"
)

// APIKeyCache fronts the user store so the auth middleware doesn't hit
// the database on every request. Entries are evicted on role or token
// changes via DeleteUserByAPIKey.
type APIKeyCache struct {
	apikeyCacheMu sync.RWMutex
	cache         map[string]*model.User
	userStor      stor.UserStor
}

func NewAPIKeyCache(userStor stor.UserStor) *APIKeyCache {
	return &APIKeyCache{
		cache:    make(map[string]*model.User),
		userStor: userStor,
	}
}

func (c *APIKeyCache) GetUserByAPIKey(apikey string) (*model.User, error) {
	c.apikeyCacheMu.RLock()

	if user, ok := c.cache[apikey]; ok {
		c.apikeyCacheMu.RUnlock()
		return user, nil
	}

	// Need to upgrade to a Write Lock
	c.apikeyCacheMu.RUnlock()
	c.apikeyCacheMu.Lock()
	defer c.apikeyCacheMu.Unlock()

	// Check again after acquiring the write lock; another goroutine may
	// have filled the entry in between.
	if user, ok := c.cache[apikey]; ok {
		return user, nil
	}

	user, err := c.userStor.GetUserByAPIToken(apikey)
	if err != nil {
		// No user matching that key
		return nil, err
	}

	c.cache[apikey] = user
	return user, nil
}

func (c *APIKeyCache) DeleteUserByAPIKey(apikey string) {
	c.apikeyCacheMu.Lock()
	defer c.apikeyCacheMu.Unlock()
	delete(c.cache, apikey)
}
