package services

import (
	"net/http"

	"github.com/truecost/backend/internal/config"
)

type SystemService struct{}

func NewSystemService() *SystemService {
	return &SystemService{}
}

// InitState handles GET /system/init and tells collaborators where the
// ledger lives.
func (s *SystemService) InitState(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, config.GetInitState())
}
