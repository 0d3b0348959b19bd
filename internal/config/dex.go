// Package config also contains DEX-specific configuration surfaces.
package config

// Dex defines network endpoints and defaults for decentralized execution.
type Dex struct {
	Chain       string `yaml:"chain"` // e.g. "solana"
	RpcURL      string `yaml:"rpc_url"`
	Commitment  string `yaml:"commitment"`   // processed|confirmed|finalized
	JupiterBase string `yaml:"jupiter_base"` // https://quote-api.jup.ag
}

// Wallet optionally carries the Jupiter signing key inline for local/dev
// runs. marketaccess.LoadWallet prefers this over the environment when set;
// production deploys should leave it empty and rely on
// SOLANA_PRIVATE_KEY_BASE58 instead so the key never lands in a config file.
type Wallet struct {
	PrivateKeyBase58 string `yaml:"private_key_base58"`
}
