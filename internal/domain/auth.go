package domain

// AuthPayload is the claim set carried by status API tokens
type AuthPayload struct {
	Subject   string `json:"sub"`
	ExpiresAt int64  `json:"exp"`
	IssuedAt  int64  `json:"iat"`
}
