package txbuilder

import (
	"github.com/pastelnetwork/ticket-storage/pastel"
)

// DefaultFeePerKB is 0.0001 PSL per kilobyte of signed transaction.
const DefaultFeePerKB = pastel.Amount(10)

// The fee is estimated before selecting inputs, then recomputed from the
// true signed size and taken out of the change output. One recomputation is
// enough: the fee delta changes the change value only, never the structure.

// EstimateDataFee returns the input selection target for a data payload.
// Each data byte is priced at the full per kilobyte rate, so the target
// exceeds the broadcast fee by a wide margin and selection never
// undershoots.
func EstimateDataFee(dataSize int, feePerKB pastel.Amount) pastel.Amount {
	return pastel.Amount(dataSize) * feePerKB
}

// FeeForSize returns the fee for a signed transaction of the given size,
// rounded up to a whole atomic unit.
func FeeForSize(sizeBytes int, feePerKB pastel.Amount) pastel.Amount {
	return (pastel.Amount(sizeBytes)*feePerKB + 999) / 1000
}
