package service

import (
	"context"
	"strconv"
	"strings"

	"yatube/internal/models"
	"yatube/internal/repository"
)

// Field messages returned inline with a rejected post form.
const (
	MsgFieldRequired  = "This field is required."
	MsgInvalidChoice  = "Select a valid choice. That choice is not one of the available choices."
	MsgImageDisabled  = "Image uploads are not accepted."
	MaxPostTextLength = 50000
)

// PostForm is the submitted create/edit form. Group carries the raw group id;
// blank means no group. There is deliberately no author field.
type PostForm struct {
	Text  string
	Group string
	Image *ImageUpload
}

// CleanPost is a PostForm that passed validation.
type CleanPost struct {
	Text    string
	GroupID *uint
	Image   *PreparedImage
}

// FormField describes one input of the post form.
type FormField struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Label    string `json:"label"`
	HelpText string `json:"help_text"`
	Required bool   `json:"required"`
}

// PostFormFields lists the post form inputs in display order.
var PostFormFields = []FormField{
	{Name: "text", Kind: "textarea", Label: "Текст", HelpText: "Текст поста", Required: true},
	{Name: "group", Kind: "select", Label: "Группа", HelpText: "Группа"},
	{Name: "image", Kind: "file", Label: "Изображение", HelpText: "Изображение"},
}

// PostFormValidator checks a PostForm against the stored groups.
type PostFormValidator struct {
	groups repository.GroupRepository
	images *ImageService
}

func NewPostFormValidator(groups repository.GroupRepository, images *ImageService) *PostFormValidator {
	return &PostFormValidator{groups: groups, images: images}
}

// Validate returns the cleaned form or a validation AppError carrying one
// message per offending field. It never writes to the store.
func (v *PostFormValidator) Validate(ctx context.Context, form PostForm) (*CleanPost, error) {
	fields := make(map[string]string)
	clean := &CleanPost{Text: strings.TrimSpace(form.Text)}

	switch n := len([]rune(clean.Text)); {
	case n == 0:
		fields["text"] = MsgFieldRequired
	case n > MaxPostTextLength:
		fields["text"] = "Ensure this value has at most 50000 characters."
	}

	groupID, err := v.cleanGroup(ctx, form.Group)
	if err != nil {
		return nil, err
	}
	if groupID == nil && !isBlankChoice(form.Group) {
		fields["group"] = MsgInvalidChoice
	}
	clean.GroupID = groupID

	if form.Image != nil {
		switch {
		case v.images == nil:
			fields["image"] = MsgImageDisabled
		default:
			img, err := v.images.Prepare(*form.Image)
			if err != nil {
				fields["image"] = err.Error()
			}
			clean.Image = img
		}
	}

	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}
	return clean, nil
}

// cleanGroup resolves the raw group choice. A nil id with a non-blank raw
// value means the choice is invalid.
func (v *PostFormValidator) cleanGroup(ctx context.Context, raw string) (*uint, error) {
	if isBlankChoice(raw) {
		return nil, nil
	}
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil || id == 0 {
		return nil, nil
	}
	ok, err := v.groups.Exists(ctx, uint(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	groupID := uint(id)
	return &groupID, nil
}

func isBlankChoice(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw == "" || raw == "null"
}
