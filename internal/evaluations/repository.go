package evaluations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *logrus.Entry
}

// New creates the Postgres-backed evaluation catalogue.
func New(db *sql.DB, logger *logrus.Entry) System {
	return &repo{
		db:     db,
		logger: logger.WithField("system", "evaluations"),
	}
}

type groupRow struct {
	savedSearchID string
	group         Group
}

type memberRow struct {
	groupID    string
	evaluation Evaluation
}

const (
	savedSearchesQ = `
		SELECT id, owner_id, name, agent_ids, metadata
		FROM saved_searches
		WHERE owner_id = $1 AND NOT deleted
		ORDER BY created_at, id`

	groupsQ = `
		SELECT ssg.saved_search_id, g.id, g.owner_id, g.name, g.condition, g.enabled
		FROM saved_search_groups ssg
		JOIN evaluation_groups g ON g.id = ssg.group_id
		WHERE g.owner_id = $1
		ORDER BY ssg.saved_search_id, ssg.position`

	membersQ = `
		SELECT m.group_id, e.id, e.template_id, e.is_critical, e.enabled,
		       t.owner_id, t.name, t.description, t.created_at
		FROM evaluation_group_members m
		JOIN evaluations e ON e.id = m.evaluation_id
		JOIN evaluation_templates t ON t.id = e.template_id
		WHERE e.owner_id = $1 AND e.enabled
		ORDER BY m.group_id, m.position`

	alertsQ = `
		SELECT id, owner_id, saved_search_id, name, enabled, type, details, cooldown_minutes, last_alerted
		FROM alerts
		WHERE owner_id = $1
		ORDER BY created_at, id`

	evaluationsQ = `
		SELECT e.id, e.template_id, e.is_critical, e.enabled,
		       t.owner_id, t.name, t.description, t.created_at
		FROM evaluations e
		JOIN evaluation_templates t ON t.id = e.template_id
		WHERE e.owner_id = $1
		ORDER BY t.created_at, e.id`
)

func (r *repo) SavedSearches(ctx context.Context, ownerID string) ([]SavedSearch, error) {
	searches, err := repository.QueryMany(ctx, r.db, savedSearchesQ, []any{ownerID}, scanSavedSearch)
	if err != nil {
		return nil, fmt.Errorf("query saved searches: %w", err)
	}
	if len(searches) == 0 {
		return searches, nil
	}

	groups, err := repository.QueryMany(ctx, r.db, groupsQ, []any{ownerID}, func(s repository.Scanner) (groupRow, error) {
		var row groupRow
		err := s.Scan(&row.savedSearchID, &row.group.ID, &row.group.OwnerID, &row.group.Name, &row.group.Condition, &row.group.Enabled)
		return row, err
	})
	if err != nil {
		return nil, fmt.Errorf("query evaluation groups: %w", err)
	}

	members, err := repository.QueryMany(ctx, r.db, membersQ, []any{ownerID}, func(s repository.Scanner) (memberRow, error) {
		var row memberRow
		e := &row.evaluation
		err := s.Scan(&row.groupID, &e.ID, &e.TemplateID, &e.IsCritical, &e.Enabled,
			&e.Template.OwnerID, &e.Template.Name, &e.Template.Description, &e.Template.CreatedAt)
		e.Template.ID = e.TemplateID
		return row, err
	})
	if err != nil {
		return nil, fmt.Errorf("query group evaluations: %w", err)
	}

	alerts, err := repository.QueryMany(ctx, r.db, alertsQ, []any{ownerID}, scanAlert)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}

	return assemble(searches, groups, members, alerts), nil
}

func assemble(searches []SavedSearch, groups []groupRow, members []memberRow, alerts []Alert) []SavedSearch {
	evaluationsByGroup := make(map[string][]Evaluation)
	for _, m := range members {
		evaluationsByGroup[m.groupID] = append(evaluationsByGroup[m.groupID], m.evaluation)
	}

	groupsBySearch := make(map[string][]Group)
	for _, g := range groups {
		group := g.group
		group.Evaluations = evaluationsByGroup[group.ID]
		if group.Evaluations == nil {
			group.Evaluations = []Evaluation{}
		}
		groupsBySearch[g.savedSearchID] = append(groupsBySearch[g.savedSearchID], group)
	}

	alertsBySearch := make(map[string][]Alert)
	for _, a := range alerts {
		alertsBySearch[a.SavedSearchID] = append(alertsBySearch[a.SavedSearchID], a)
	}

	for i := range searches {
		searches[i].Groups = groupsBySearch[searches[i].ID]
		searches[i].Alerts = alertsBySearch[searches[i].ID]
	}
	return searches
}

func (r *repo) EvaluationsByOwner(ctx context.Context, ownerID string) ([]Evaluation, error) {
	evals, err := repository.QueryMany(ctx, r.db, evaluationsQ, []any{ownerID}, func(s repository.Scanner) (Evaluation, error) {
		var e Evaluation
		err := s.Scan(&e.ID, &e.TemplateID, &e.IsCritical, &e.Enabled,
			&e.Template.OwnerID, &e.Template.Name, &e.Template.Description, &e.Template.CreatedAt)
		e.Template.ID = e.TemplateID
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	return evals, nil
}

func (r *repo) CreateEvaluations(ctx context.Context, ownerID string, templates []Template) ([]Evaluation, error) {
	if len(templates) == 0 {
		return []Evaluation{}, nil
	}

	evals, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) ([]Evaluation, error) {
		out := make([]Evaluation, 0, len(templates))
		for _, t := range templates {
			t.ID = uuid.NewString()
			t.OwnerID = ownerID

			err := tx.QueryRowContext(ctx,
				`INSERT INTO evaluation_templates(id, owner_id, name, description)
				 VALUES ($1, $2, $3, $4) RETURNING created_at`,
				t.ID, t.OwnerID, t.Name, t.Description,
			).Scan(&t.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("insert template %q: %w", t.Name, err)
			}

			e := Evaluation{
				ID:         uuid.NewString(),
				TemplateID: t.ID,
				Template:   t,
				Enabled:    true,
			}
			if err := repository.ExecExpectOne(ctx, tx,
				`INSERT INTO evaluations(id, owner_id, template_id, is_critical, enabled)
				 VALUES ($1, $2, $3, $4, $5)`,
				e.ID, ownerID, e.TemplateID, e.IsCritical, e.Enabled,
			); err != nil {
				return nil, fmt.Errorf("insert evaluation for template %q: %w", t.Name, err)
			}

			out = append(out, e)
		}
		return out, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"count":    len(evals),
	}).Info("evaluations created")

	return evals, nil
}

func (r *repo) MarkAlerted(ctx context.Context, alertID string, at time.Time) error {
	err := repository.ExecExpectOne(ctx, r.db,
		`UPDATE alerts SET last_alerted = $2, updated_at = NOW() WHERE id = $1`,
		alertID, at,
	)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func scanSavedSearch(s repository.Scanner) (SavedSearch, error) {
	var ss SavedSearch
	var agentIDs, metadata []byte
	if err := s.Scan(&ss.ID, &ss.OwnerID, &ss.Name, &agentIDs, &metadata); err != nil {
		return ss, err
	}

	ss.AgentIDs = []string{}
	if len(agentIDs) > 0 {
		if err := json.Unmarshal(agentIDs, &ss.AgentIDs); err != nil {
			return ss, fmt.Errorf("saved search %s agent ids: %w", ss.ID, err)
		}
	}

	ss.Metadata = Filter{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &ss.Metadata); err != nil {
			return ss, fmt.Errorf("saved search %s metadata: %w", ss.ID, err)
		}
	}

	return ss, nil
}

func scanAlert(s repository.Scanner) (Alert, error) {
	var a Alert
	var alertType string
	var details []byte
	var lastAlerted sql.NullTime

	err := s.Scan(&a.ID, &a.OwnerID, &a.SavedSearchID, &a.Name, &a.Enabled, &alertType, &details, &a.CooldownMinutes, &lastAlerted)
	if err != nil {
		return a, err
	}

	a.Type = AlertType(alertType)
	a.Details = json.RawMessage(details)
	if lastAlerted.Valid {
		t := lastAlerted.Time
		a.LastAlerted = &t
	}
	return a, nil
}
