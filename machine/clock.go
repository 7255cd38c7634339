package machine

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/MixinNetwork/mixin/logger"
)

const clockStorePropertyKey = "MACHINE:CLOCK:MONOTONIC"

// Clock hands out strictly increasing timestamps that survive restarts.
type Clock struct {
	sync.Mutex
	store Store
	now   time.Time
}

func NewClock(store Store) (*Clock, error) {
	bs, err := store.ReadProperty([]byte(clockStorePropertyKey))
	if err != nil {
		return nil, err
	}
	clock := &Clock{store: store, now: time.Now()}
	if len(bs) == 8 {
		ts := time.Unix(0, int64(binary.BigEndian.Uint64(bs)))
		if ts.After(clock.now) {
			clock.now = ts
		}
	}
	return clock, nil
}

func (c *Clock) Now() time.Time {
	c.Lock()
	defer c.Unlock()

	if now := time.Now(); now.After(c.now) {
		c.now = now
	} else {
		c.now = c.now.Add(time.Nanosecond)
	}

	val := binary.BigEndian.AppendUint64(nil, uint64(c.now.UnixNano()))
	for {
		err := c.store.WriteProperty([]byte(clockStorePropertyKey), val)
		if err == nil {
			break
		}
		logger.Printf("Clock.WriteProperty(%d) => %v\n", c.now.UnixNano(), err)
		time.Sleep(100 * time.Millisecond)
	}

	return c.now
}
