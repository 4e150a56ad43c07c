package handler

import (
	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

// --- Domain → Response ---

func toRolesResponse(roles []domain.Role) []roleResponse {
	out := make([]roleResponse, 0, len(roles))
	for _, r := range roles {
		perms := r.Permissions
		if perms == nil {
			perms = []string{}
		}
		out = append(out, roleResponse{ID: r.ID, Name: r.Name, Color: r.Color, Permissions: perms})
	}
	return out
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		FPCode:    u.FPCode,
		Balance:   u.Balance.InexactFloat64(),
		IBAN:      u.IBAN,
		Roles:     toRolesResponse(u.Roles),
		CreatedAt: u.CreatedAt,
	}
}

func toTransactionsResponse(txs []domain.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		item := transactionResponse{
			ID:            tx.ID,
			Type:          string(tx.Type),
			Amount:        tx.Amount.InexactFloat64(),
			Status:        string(tx.Status),
			FailureReason: tx.FailureReason,
			CreatedAt:     tx.CreatedAt,
		}
		if tx.Type == domain.TxWithdraw {
			item.WithdrawID = tx.ExternalID
		}
		out = append(out, item)
	}
	return out
}

func toEntryResponse(e domain.Entry) entryResponse {
	return entryResponse{
		ID:            e.ID,
		ImageURL:      e.ImageURL,
		Description:   e.Description,
		OwnerUsername: e.OwnerUsername,
		VotesCount:    e.VotesCount,
		CreatedAt:     e.CreatedAt,
	}
}

func toEditionResponse(e *domain.Edition) editionResponse {
	return editionResponse{
		ID:            e.ID,
		EditionNumber: e.EditionNumber,
		Status:        string(e.Status),
		CreatedAt:     e.CreatedAt,
		PublishedAt:   e.PublishedAt,
		Content:       e.Content,
	}
}

func toSettingsResponse(s *domain.Settings) settingsResponse {
	return settingsResponse{
		EntryFee:    s.EntryFee.InexactFloat64(),
		APIKey:      s.APIKey,
		WithdrawURL: s.WithdrawURL,
		CurrentWeek: s.CurrentWeek,
		UpdatedAt:   s.UpdatedAt,
	}
}

// --- Request → Domain ---

func toEdition(req editionRequest) domain.Edition {
	return domain.Edition{
		ID:            req.ID,
		EditionNumber: req.EditionNumber,
		Status:        domain.EditionStatus(req.Status),
		Content:       req.Content,
	}
}

func toSettingsPatch(req updateSettingsRequest) domain.SettingsPatch {
	return domain.SettingsPatch{
		EntryFee:    req.EntryFee,
		APIKey:      req.APIKey,
		WithdrawURL: req.WithdrawURL,
		CurrentWeek: req.CurrentWeek,
	}
}

func toPublicSettingsResponse(s *ports.PublicSettings) publicSettingsResponse {
	return publicSettingsResponse{
		EntryFee:    s.EntryFee.InexactFloat64(),
		CurrentWeek: s.CurrentWeek,
	}
}
