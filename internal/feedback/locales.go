// Package feedback turns validation results into localized, cell-sized
// messages and batch-level summaries for the sheet owner.
package feedback

import (
	"strings"

	"github.com/gridsync-io/gridsync/internal/validation"
)

// Locale identifiers accepted by the formatter. Anything else falls back
// to English.
const (
	LocaleEnglish = "en"
	LocaleFrench  = "fr"
	LocaleArabic  = "ar"

	defaultLocale = LocaleEnglish
)

// messageTemplates maps locale → issue code → template. Placeholders
// {field}, {value}, {message} and {suggestion} are interpolated; {field}
// expands to the localized field name. Tables are package-level constants
// in spirit: built once at init, never mutated at runtime.
var messageTemplates = map[string]map[validation.Code]string{
	LocaleEnglish: {
		validation.CodeRequiredFieldMissing: "{field} is required",
		validation.CodeInvalidFormat:        "{field} has an invalid format: {value}",
		validation.CodeInvalidLength:        "{field} has an invalid length",
		validation.CodeInvalidValue:         "{field} has an invalid value: {value}",
		validation.CodeInvalidType:          "{field} is not a valid number: {value}",
		validation.CodeProductNotFound:      "Product \"{value}\" was not found in the catalog",
		validation.CodeNameMismatch:         "{field} does not match the catalog entry",
		validation.CodePriceMismatch:        "{field} differs from the catalog price",
		validation.CodePrecisionWarning:     "{field} has too many decimal places: {value}",
		validation.CodeSuspiciousValue:      "{field} looks suspicious: {message}",
		validation.CodeValidationError:      "{field} could not be checked: {message}",
	},
	LocaleFrench: {
		validation.CodeRequiredFieldMissing: "{field} est requis",
		validation.CodeInvalidFormat:        "{field} a un format invalide : {value}",
		validation.CodeInvalidLength:        "{field} a une longueur invalide",
		validation.CodeInvalidValue:         "{field} a une valeur invalide : {value}",
		validation.CodeInvalidType:          "{field} n'est pas un nombre valide : {value}",
		validation.CodeProductNotFound:      "Le produit « {value} » est introuvable dans le catalogue",
		validation.CodeNameMismatch:         "{field} ne correspond pas au catalogue",
		validation.CodePriceMismatch:        "{field} diffère du prix catalogue",
		validation.CodePrecisionWarning:     "{field} a trop de décimales : {value}",
		validation.CodeSuspiciousValue:      "{field} semble suspect : {message}",
		validation.CodeValidationError:      "{field} n'a pas pu être vérifié : {message}",
	},
	LocaleArabic: {
		validation.CodeRequiredFieldMissing: "{field} مطلوب",
		validation.CodeInvalidFormat:        "تنسيق {field} غير صالح: {value}",
		validation.CodeInvalidLength:        "طول {field} غير صالح",
		validation.CodeInvalidValue:         "قيمة {field} غير صالحة: {value}",
		validation.CodeInvalidType:          "{field} ليس رقمًا صالحًا: {value}",
		validation.CodeProductNotFound:      "المنتج \"{value}\" غير موجود في الكتالوج",
		validation.CodeNameMismatch:         "{field} لا يطابق الكتالوج",
		validation.CodePriceMismatch:        "{field} يختلف عن سعر الكتالوج",
		validation.CodePrecisionWarning:     "{field} يحتوي على منازل عشرية كثيرة: {value}",
		validation.CodeSuspiciousValue:      "{field} يبدو مشبوهًا: {message}",
		validation.CodeValidationError:      "تعذر التحقق من {field}: {message}",
	},
}

// fieldNames maps locale → row field → display name.
var fieldNames = map[string]map[string]string{
	LocaleEnglish: {
		"customerName": "Customer Name",
		"phone":        "Phone Number",
		"address":      "Address",
		"city":         "City",
		"email":        "Email",
		"productName":  "Product",
		"quantity":     "Quantity",
		"unitPrice":    "Price",
		"orderDate":    "Order Date",
	},
	LocaleFrench: {
		"customerName": "Nom du Client",
		"phone":        "Numéro de Téléphone",
		"address":      "Adresse",
		"city":         "Ville",
		"email":        "Email",
		"productName":  "Produit",
		"quantity":     "Quantité",
		"unitPrice":    "Prix",
		"orderDate":    "Date de Commande",
	},
	LocaleArabic: {
		"customerName": "اسم العميل",
		"phone":        "رقم الهاتف",
		"address":      "العنوان",
		"city":         "المدينة",
		"email":        "البريد الإلكتروني",
		"productName":  "المنتج",
		"quantity":     "الكمية",
		"unitPrice":    "السعر",
		"orderDate":    "تاريخ الطلب",
	},
}

// summaryTemplates drive the batch summary sentence. Placeholders {total},
// {valid}, {errors} and {warnings} are interpolated.
var summaryTemplates = map[string]string{
	LocaleEnglish: "{total} rows processed: {valid} valid, {errors} with errors, {warnings} with warnings",
	LocaleFrench:  "{total} lignes traitées : {valid} valides, {errors} en erreur, {warnings} avec avertissements",
	LocaleArabic:  "تمت معالجة {total} صفوف: {valid} صالحة، {errors} بها أخطاء، {warnings} بها تحذيرات",
}

// normalizeLocale maps an arbitrary locale identifier to a supported one,
// defaulting to English. Regional variants like "fr-MA" match their base
// language.
func normalizeLocale(locale string) string {
	base := strings.ToLower(locale)
	if idx := strings.IndexAny(base, "-_"); idx > 0 {
		base = base[:idx]
	}

	if _, ok := messageTemplates[base]; ok {
		return base
	}

	return defaultLocale
}

// localizeField returns the display name for a row field, falling back to
// the raw field identifier for anything unknown.
func localizeField(field, locale string) string {
	if name, ok := fieldNames[locale][field]; ok {
		return name
	}

	if name, ok := fieldNames[defaultLocale][field]; ok {
		return name
	}

	return field
}

// LocalizeIssue renders one validation issue in the given locale. The
// suggestion, when present, is appended in parentheses.
func LocalizeIssue(issue validation.Issue, locale string) string {
	locale = normalizeLocale(locale)

	template, ok := messageTemplates[locale][issue.Code]
	if !ok {
		template = messageTemplates[defaultLocale][issue.Code]
	}

	if template == "" {
		template = "{field}: {message}"
	}

	text := strings.NewReplacer(
		"{field}", localizeField(issue.Field, locale),
		"{value}", issue.Value,
		"{message}", issue.Message,
		"{suggestion}", issue.SuggestedFix,
	).Replace(template)

	if issue.SuggestedFix != "" && !strings.Contains(template, "{suggestion}") {
		text += " (" + issue.SuggestedFix + ")"
	}

	return text
}
