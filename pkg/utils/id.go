package utils

import (
	"fmt"
	"sync/atomic"
	"time"
)

// idSeq reduces collisions when ids are minted within the same nanosecond.
var idSeq uint64

// GenMessageID returns a new unique message id.
func GenMessageID() string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("msg-%d-%d", n, s)
}

// GenChannelID returns a new unique channel id.
func GenChannelID() string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("chan-%d-%d", n, s)
}
