package dto

// FrameRequest carries a base64-encoded still image, optionally prefixed
// with a data-URI scheme marker.
type FrameRequest struct {
	Image string `json:"image"`
}

type EnrollRequest struct {
	Processo string `json:"processo"`
	Image    string `json:"image"`
}

type VerifyRequest struct {
	Processo string `json:"processo"`
	Image    string `json:"image"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type EnrollResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

type VerifyResponse struct {
	Success          bool    `json:"success"`
	Verified         bool    `json:"verified"`
	Message          string  `json:"message"`
	Confidence       float64 `json:"confidence"`
	ComparecimentoID string  `json:"comparecimento_id,omitempty"`
}

type Registration struct {
	Processo     string `json:"processo"`
	CadastradoEm string `json:"cadastrado_em"`
}

type ListResponse struct {
	Success   bool           `json:"success"`
	Total     int            `json:"total"`
	Cadastros []Registration `json:"cadastros"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
