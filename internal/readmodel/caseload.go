package readmodel

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	casemodels "casework/internal/casework/models"
	"casework/internal/eventsource"
	id "casework/pkg/domain"
)

// Caseload indexes open cases by active assignee.
//
// Keys:
//
//	{prefix}:caseload:{actorID}          set of case ids
//	{prefix}:case:{caseID}:assignments   hash assignment id -> assignee id
//	{prefix}:cases:open                  set of case ids not yet terminal
type Caseload struct {
	projection
}

// NewCaseload builds the caseload projection. Register it on the case
// repository with eventsource.WithObserver.
func NewCaseload(rdb redis.UniversalClient, opts ...Option) *Caseload {
	c := &Caseload{}
	c.projection = newProjection("caseload", rdb, c.apply, opts)
	return c
}

func (c *Caseload) caseloadKey(actor string) string {
	return c.key("caseload", actor)
}

func (c *Caseload) assignmentsKey(caseID string) string {
	return c.key("case", caseID, "assignments")
}

func (c *Caseload) openKey() string {
	return c.key("cases", "open")
}

func (c *Caseload) apply(ctx context.Context, rdb redis.Cmdable, pipe redis.Pipeliner, env eventsource.Envelope) error {
	if env.AggregateType != casemodels.AggregateType {
		return nil
	}
	e, err := casemodels.Codec.Decode(env)
	if err != nil {
		return err
	}
	caseID := env.AggregateID.String()

	switch ev := e.(type) {
	case casemodels.CaseOpened:
		pipe.SAdd(ctx, c.openKey(), caseID)
	case casemodels.WorkerAssigned:
		if ev.Replaces != nil {
			if err := c.release(ctx, rdb, pipe, caseID, ev.Replaces.String(), ev.AssigneeID.String()); err != nil {
				return err
			}
		}
		pipe.HSet(ctx, c.assignmentsKey(caseID), ev.AssignmentID.String(), ev.AssigneeID.String())
		pipe.SAdd(ctx, c.caseloadKey(ev.AssigneeID.String()), caseID)
	case casemodels.AssignmentEnded:
		return c.release(ctx, rdb, pipe, caseID, ev.AssignmentID.String(), "")
	case casemodels.StatusChanged:
		if ev.To.IsTerminal() {
			return c.retire(ctx, rdb, pipe, caseID)
		}
	case casemodels.CaseClosed:
		return c.retire(ctx, rdb, pipe, caseID)
	}
	return nil
}

// retire drops a terminal case from every caseload and from the open set.
func (c *Caseload) retire(ctx context.Context, rdb redis.Cmdable, pipe redis.Pipeliner, caseID string) error {
	active, err := rdb.HGetAll(ctx, c.assignmentsKey(caseID)).Result()
	if err != nil {
		return fmt.Errorf("read assignments of case %s: %w", caseID, err)
	}
	for _, assignee := range active {
		pipe.SRem(ctx, c.caseloadKey(assignee), caseID)
	}
	pipe.Del(ctx, c.assignmentsKey(caseID))
	pipe.SRem(ctx, c.openKey(), caseID)
	return nil
}

// release drops one assignment. The case leaves the assignee's caseload
// unless another active assignment (or the incoming one, keep) still
// points at them.
func (c *Caseload) release(ctx context.Context, rdb redis.Cmdable, pipe redis.Pipeliner, caseID, assignmentID, keep string) error {
	active, err := rdb.HGetAll(ctx, c.assignmentsKey(caseID)).Result()
	if err != nil {
		return fmt.Errorf("read assignments of case %s: %w", caseID, err)
	}
	assignee, ok := active[assignmentID]
	if !ok {
		return nil
	}
	pipe.HDel(ctx, c.assignmentsKey(caseID), assignmentID)
	if assignee == keep {
		return nil
	}
	for aid, other := range active {
		if aid != assignmentID && other == assignee {
			return nil
		}
	}
	pipe.SRem(ctx, c.caseloadKey(assignee), caseID)
	return nil
}

// CasesFor lists the open cases actor is actively assigned to.
func (c *Caseload) CasesFor(ctx context.Context, actor id.ActorID) ([]id.CaseID, error) {
	members, err := c.rdb.SMembers(ctx, c.caseloadKey(actor.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("read caseload of %s: %w", actor, err)
	}
	return parseCaseIDs(members)
}

// OpenCases lists every projected case that is not closed or cancelled.
func (c *Caseload) OpenCases(ctx context.Context) ([]id.CaseID, error) {
	members, err := c.rdb.SMembers(ctx, c.openKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("read open cases: %w", err)
	}
	return parseCaseIDs(members)
}

func parseCaseIDs(members []string) ([]id.CaseID, error) {
	out := make([]id.CaseID, 0, len(members))
	for _, m := range members {
		caseID, err := id.ParseCaseID(m)
		if err != nil {
			return nil, fmt.Errorf("caseload member %q: %w", m, err)
		}
		out = append(out, caseID)
	}
	return out, nil
}
