package pastel

// Script op codes used by the storage scripts. Only the subset the carrier
// and change templates need is defined.
const (
	OP_0         = byte(0x00)
	OP_PUSHDATA1 = byte(0x4c)
	OP_PUSHDATA2 = byte(0x4d)
	OP_PUSHDATA4 = byte(0x4e)
	OP_1NEGATE   = byte(0x4f)
	OP_RESERVED  = byte(0x50)
	OP_1         = byte(0x51)

	OP_RETURN = byte(0x6a)
	OP_DUP    = byte(0x76)

	OP_EQUAL       = byte(0x87)
	OP_EQUALVERIFY = byte(0x88)

	OP_HASH160       = byte(0xa9)
	OP_CHECKSIG      = byte(0xac)
	OP_CHECKMULTISIG = byte(0xae)
)
