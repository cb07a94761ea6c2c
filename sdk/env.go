package sdk

type Intent struct {
	Type string            `json:"type"`
	Args map[string]string `json:"args"`
}

type Sender struct {
	Address              Address   `json:"id"`
	RequiredAuths        []Address `json:"required_auths"`
	RequiredPostingAuths []Address `json:"required_posting_auths"`
}

type ContractCallOptions struct {
	Intents []Intent `json:"intents,omitempty"`
}

// Env is the per-transaction environment the host hands to the contract.
type Env struct {
	ContractId  string   `json:"contract.id"`
	TxId        string   `json:"tx.id"`
	Index       int64    `json:"tx.index"`
	OpIndex     int64    `json:"tx.op_index"`
	BlockId     string   `json:"block.id"`
	BlockHeight uint64   `json:"block.height"`
	Timestamp   string   `json:"block.timestamp"`
	Sender      Sender   `json:"-"`
	Caller      Address  `json:"msg.caller"`
	Intents     []Intent `json:"intents"`
}
