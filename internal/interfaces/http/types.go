package httpinterface

type mnemonicRequest struct {
	Mnemonic []string `json:"mnemonic"`
	Password string   `json:"password"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type labelRequest struct {
	Label string `json:"label"`
}

type trezorAccountRequest struct {
	Xpub  string `json:"xpub"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

type networkRequest struct {
	Network string `json:"network"`
}

type contactRequest struct {
	Label   string `json:"label"`
	Address string `json:"address"`
	Network string `json:"network"`
}

type approveConnectionRequest struct {
	Nonce     string `json:"nonce"`
	AccountID int    `json:"accountId"`
}

type connectionRequest struct {
	Origin    string `json:"origin"`
	AccountID int    `json:"accountId"`
}

type webhookRequest struct {
	Endpoint string `json:"endpoint"`
	Topic    string `json:"topic"`
	Secret   string `json:"secret"`
}

