package api

// WalletInfo is the volume summary section of a wallet response.
type WalletInfo struct {
	// TotalTransVolumeEth is the base bridge's total deposit volume in
	// native-asset terms, formatted to 4 decimals.
	TotalTransVolumeEth string `json:"totalTransVolumeEth"`

	// TotalTransVolumeUsd is the same volume converted to USD.
	TotalTransVolumeUsd string `json:"totalTransVolumeUsd"`

	// TotalTrans is the number of base bridge deposit events.
	TotalTrans int `json:"totalTrans"`
}

// WalletStatus holds the wallet's eligibility flags.
type WalletStatus struct {
	Optimism  bool `json:"optimism"`
	Blast     bool `json:"blast"`
	EarlyBird bool `json:"earlyBird"`
	Uniswap   bool `json:"uniswap"`
	Pepe      bool `json:"pepe"`
	Pork      bool `json:"pork"`
	USDC      bool `json:"usdc"`
	USDT      bool `json:"usdt"`
}

// TransactionsResponse is the response of the wallet transactions endpoint.
type TransactionsResponse struct {
	WalletInfo   WalletInfo   `json:"walletInfo"`
	WalletStatus WalletStatus `json:"walletStatus"`
}

type errorResponse struct {
	Msg string `json:"msg"`
}
