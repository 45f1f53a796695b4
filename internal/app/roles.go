package app

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"botdash/clients/botapi"
	"botdash/clients/notifier"
	"botdash/config"

	"go.uber.org/zap"
)

var snowflakeRe = regexp.MustCompile(`^\d{17,19}$`)

// IsSnowflake reports whether id looks like a Discord id (17 to 19 digits).
func IsSnowflake(id string) bool {
	return snowflakeRe.MatchString(id)
}

// ErrConfirmationRequired is returned by Remove when the caller has not
// confirmed the deletion.
var ErrConfirmationRequired = errors.New("removal not confirmed")

// ValidationErrors lists form fields that failed validation.
type ValidationErrors []config.ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Field + ": " + e.Message
	}
	return strings.Join(parts, "; ")
}

// ReactionRoleForm is the add form of the reaction-role editor.
type ReactionRoleForm struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
	RoleID    string `json:"role_id"`
}

func (f ReactionRoleForm) trimmed() ReactionRoleForm {
	return ReactionRoleForm{
		GuildID:   strings.TrimSpace(f.GuildID),
		ChannelID: strings.TrimSpace(f.ChannelID),
		MessageID: strings.TrimSpace(f.MessageID),
		Emoji:     strings.TrimSpace(f.Emoji),
		RoleID:    strings.TrimSpace(f.RoleID),
	}
}

// Validate checks that every field is present and every id is a snowflake.
func (f ReactionRoleForm) Validate() ValidationErrors {
	var errs ValidationErrors
	ids := []struct {
		field string
		value string
	}{
		{"guild_id", f.GuildID},
		{"channel_id", f.ChannelID},
		{"message_id", f.MessageID},
	}
	for _, id := range ids {
		errs = append(errs, validateID(id.field, id.value)...)
	}
	if f.Emoji == "" {
		errs = append(errs, config.ValidationError{Field: "emoji", Message: "is required"})
	}
	errs = append(errs, validateID("role_id", f.RoleID)...)
	return errs
}

func validateID(field, value string) ValidationErrors {
	switch {
	case value == "":
		return ValidationErrors{{Field: field, Message: "is required"}}
	case !IsSnowflake(value):
		return ValidationErrors{{Field: field, Message: "must be a Discord ID of 17-19 digits"}}
	}
	return nil
}

// ReactionRoleRow is one rule in the editor list.
type ReactionRoleRow struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
	RoleID    string `json:"role_id"`
}

// ReactionRolesView is the state of the reaction-role editor.
type ReactionRolesView struct {
	Rules       []ReactionRoleRow `json:"rules"`
	Placeholder string            `json:"placeholder,omitempty"`
	Error       string            `json:"error,omitempty"`
	Form        ReactionRoleForm  `json:"form"`
	UpdatedAt   time.Time         `json:"updated_at,omitzero"`
}

// ReactionRoles lists, adds and removes reaction-role rules.
type ReactionRoles struct {
	deps Deps

	mu   sync.RWMutex
	view ReactionRolesView
}

func NewReactionRoles(deps Deps) *ReactionRoles {
	return &ReactionRoles{
		deps: deps.withDefaults(),
		view: ReactionRolesView{Rules: []ReactionRoleRow{}, Placeholder: PlaceholderLoading},
	}
}

// Refresh fetches /api/reaction_roles and replaces the list.
func (r *ReactionRoles) Refresh(ctx context.Context) {
	seq := r.deps.Seq.Next(ComponentReactionRoles)
	rules, err := r.deps.API.GetReactionRoles(ctx)

	r.mu.Lock()
	if !r.deps.Seq.Current(ComponentReactionRoles, seq) {
		r.mu.Unlock()
		return
	}
	r.view.Rules = []ReactionRoleRow{}
	r.view.Placeholder = ""
	r.view.Error = ""
	r.view.UpdatedAt = r.deps.Clock.Now()
	switch {
	case err != nil:
		r.deps.Logger.Warn("failed to fetch reaction roles", zap.Error(err))
		r.view.Error = errReactionRolesPref + botapi.Message(err)
	case len(rules) == 0:
		r.view.Placeholder = PlaceholderNoRoles
	default:
		for _, rule := range rules {
			r.view.Rules = append(r.view.Rules, ReactionRoleRow{
				GuildID:   rule.GuildID.String(),
				ChannelID: rule.ChannelID.String(),
				MessageID: rule.MessageID.String(),
				Emoji:     rule.Emoji,
				RoleID:    rule.RoleID.String(),
			})
		}
	}
	r.mu.Unlock()

	r.deps.Sink.Changed(ComponentReactionRoles)
}

// Add validates form and creates the rule. Invalid forms are rejected
// without a request. On success the form is cleared and the list re-fetched.
func (r *ReactionRoles) Add(ctx context.Context, form ReactionRoleForm) (*botapi.ActionResult, error) {
	form = form.trimmed()

	r.mu.Lock()
	r.view.Form = form
	r.mu.Unlock()

	if errs := form.Validate(); len(errs) > 0 {
		r.deps.Toasts.Show(ComponentReactionRoles, "Invalid reaction role: "+errs.Error(), ToastError)
		r.deps.Sink.Changed(ComponentReactionRoles)
		return nil, errs
	}

	res, err := r.deps.API.AddReactionRole(ctx, botapi.AddReactionRoleRequest{
		GuildID:   form.GuildID,
		ChannelID: form.ChannelID,
		MessageID: form.MessageID,
		Emoji:     form.Emoji,
		RoleID:    form.RoleID,
	})
	event := notifier.AuditEvent{
		Kind:   notifier.AuditKindReactionRoleAdd,
		Target: form.MessageID,
		Detail: form.Emoji + " -> " + form.RoleID,
	}
	if err != nil {
		r.deps.Logger.Warn("failed to add reaction role", zap.String("messageID", form.MessageID), zap.Error(err))
		msg := botapi.Message(err)
		r.deps.Toasts.Show(ComponentReactionRoles, "Failed to add reaction role: "+msg, ToastError)
		event.Message = msg
		r.deps.audit(event)
		return res, err
	}

	r.mu.Lock()
	r.view.Form = ReactionRoleForm{}
	r.mu.Unlock()

	r.deps.Toasts.Show(ComponentReactionRoles, strings.TrimSpace("Reaction role added. "+resultText(res)), ToastSuccess)
	event.Success = true
	event.Message = resultText(res)
	r.deps.audit(event)

	r.Refresh(ctx)
	return res, nil
}

// Remove deletes the rule for (messageID, emoji). Nothing is sent unless
// confirmed is true.
func (r *ReactionRoles) Remove(ctx context.Context, messageID, emoji string, confirmed bool) (*botapi.ActionResult, error) {
	if !confirmed {
		return nil, ErrConfirmationRequired
	}
	messageID = strings.TrimSpace(messageID)
	emoji = strings.TrimSpace(emoji)

	errs := validateID("message_id", messageID)
	if emoji == "" {
		errs = append(errs, config.ValidationError{Field: "emoji", Message: "is required"})
	}
	if len(errs) > 0 {
		r.deps.Toasts.Show(ComponentReactionRoles, "Invalid reaction role: "+errs.Error(), ToastError)
		return nil, errs
	}

	res, err := r.deps.API.RemoveReactionRole(ctx, botapi.RemoveReactionRoleRequest{MessageID: messageID, Emoji: emoji})
	event := notifier.AuditEvent{
		Kind:   notifier.AuditKindReactionRoleRemove,
		Target: messageID,
		Detail: emoji,
	}
	if err != nil {
		r.deps.Logger.Warn("failed to remove reaction role", zap.String("messageID", messageID), zap.Error(err))
		msg := botapi.Message(err)
		r.deps.Toasts.Show(ComponentReactionRoles, "Failed to remove reaction role: "+msg, ToastError)
		event.Message = msg
		r.deps.audit(event)
		return res, err
	}

	r.deps.Toasts.Show(ComponentReactionRoles, strings.TrimSpace("Reaction role removed. "+resultText(res)), ToastSuccess)
	event.Success = true
	event.Message = resultText(res)
	r.deps.audit(event)

	r.Refresh(ctx)
	return res, nil
}

func (r *ReactionRoles) View() ReactionRolesView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.view
	out.Rules = append([]ReactionRoleRow{}, r.view.Rules...)
	return out
}
