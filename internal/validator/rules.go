package validator

import (
	"log"

	"verdict_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules регистрирует доменные теги валидации.
// Пустые значения пропускаются, для них есть 'required'.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-variant", validateVariant)
	mustRegister("is-choice", validateChoice)
	mustRegister("is-photo-choice", validatePhotoChoice)
	mustRegister("is-tone", validateTone)
	mustRegister("is-media-type", validateMediaType)
}

func validateVariant(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.RequestVariant(value).Valid()
}

func validateChoice(fl validator.FieldLevel) bool {
	switch models.Choice(fl.Field().String()) {
	case "", models.ChoiceA, models.ChoiceB, models.ChoiceTie:
		return true
	default:
		return false
	}
}

// Сплит-тест без ничьей: судья выбирает одно фото
func validatePhotoChoice(fl validator.FieldLevel) bool {
	switch models.Choice(fl.Field().String()) {
	case "", models.ChoiceA, models.ChoiceB:
		return true
	default:
		return false
	}
}

func validateTone(fl validator.FieldLevel) bool {
	switch models.VerdictTone(fl.Field().String()) {
	case "", models.ToneEncouraging, models.ToneHonest, models.ToneConstructive, models.ToneBlunt:
		return true
	default:
		return false
	}
}

func validateMediaType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "photo", "text":
		return true
	default:
		return false
	}
}
