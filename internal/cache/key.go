package cache

import (
	"strconv"
	"strings"
)

// Key is a hierarchical cache address. Two keys are equal iff their segment
// sequences are equal; a key covers another when its segments are a prefix
// of the other's. Invalidating a coarse key therefore reaches every finer
// key nested under it.
type Key []string

// String renders the key for use as a map key and in logs.
func (k Key) String() string {
	return strings.Join(k, "/")
}

// Family returns the leading segment, used for metrics grouping.
func (k Key) Family() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

// Equal reports segment-wise equality.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// Covers reports whether k's segments are a (non-strict) prefix of other's.
func (k Key) Covers(other Key) bool {
	if len(k) > len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// Key constructors. Discriminator order goes coarse to fine so that prefix
// coverage matches invalidation scope.

func CategoriesByQuery(page, limit int, search string) Key {
	return Key{"categories", "list", "query", strconv.Itoa(page), strconv.Itoa(limit), search}
}

func CategoriesByQueue(queueID string) Key {
	return Key{"categories", "list", "queue", queueID}
}

func CategoryDetail(id string) Key {
	return Key{"categories", "detail", id}
}

func QueuesByQuery(page, limit int, search string) Key {
	return Key{"queues", "list", "query", strconv.Itoa(page), strconv.Itoa(limit), search}
}

func QueueDetail(id string) Key {
	return Key{"queues", "detail", id}
}

func TicketDetail(id string) Key {
	return Key{"tickets", "detail", id}
}

func HistoryByTicket(ticketID string) Key {
	return Key{"history-items", "ticket", ticketID}
}

func NotificationsList() Key {
	return Key{"notifications", "list"}
}

func UserDocumentsList() Key {
	return Key{"user-documents", "list"}
}

// Coarse prefixes for broad invalidation.

func AllCategories() Key { return Key{"categories"} }

func AllCategoryLists() Key { return Key{"categories", "list"} }

func AllQueues() Key { return Key{"queues"} }

func AllQueueLists() Key { return Key{"queues", "list"} }
