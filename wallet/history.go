package wallet

import "github.com/statewire/walletcore/pkg/wire"

// TransactionRecord is one normalized history entry. Providers omit
// fields freely; a missing field keeps its zero value here.
type TransactionRecord struct {
	Hash        string
	From        string
	To          string
	Value       string
	BlockNumber uint64
	Timestamp   int64
	Status      string
}

// normalizeHistory reads the provider's "transactions" sequence field
// by field. A record missing fields still yields an entry; only entries
// that are not objects at all are dropped.
func normalizeHistory(res wire.Params) []TransactionRecord {
	raw := res.SliceOr("transactions")
	records := make([]TransactionRecord, 0, len(raw))
	for _, entry := range raw {
		if entry == nil {
			continue
		}
		records = append(records, TransactionRecord{
			Hash:        entry.StringOr("hash", ""),
			From:        entry.StringOr("from", ""),
			To:          entry.StringOr("to", ""),
			Value:       entry.StringOr("value", "0"),
			BlockNumber: entry.Uint64Or("blockNumber", 0),
			Timestamp:   entry.IntOr("timestamp", 0),
			Status:      entry.StringOr("status", ""),
		})
	}
	return records
}
