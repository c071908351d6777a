package mailer

import "fmt"

// Locale selects the language transactional emails are rendered in.
type Locale string

const (
	LocaleEN Locale = "EN"
	LocaleFR Locale = "FR"
)

type emailTemplate struct {
	subject string
	body    string
}

func (t emailTemplate) render(firstName, link string) string {
	return fmt.Sprintf(t.body, firstName, link)
}

type templateSet struct {
	confirmation emailTemplate
	reset        emailTemplate
}

var templates = map[Locale]templateSet{
	LocaleEN: {
		confirmation: emailTemplate{
			subject: "Confirm your account",
			body: `<p>Hi %s,</p>
<p>Thanks for signing up. Please confirm your account by clicking the link below:</p>
<p><a href="%s">Confirm my account</a></p>
<p>If you did not create this account, you can safely ignore this email.</p>`,
		},
		reset: emailTemplate{
			subject: "Reset your password",
			body: `<p>Hi %s,</p>
<p>We received a request to reset your password. Click the link below to choose a new one:</p>
<p><a href="%s">Reset my password</a></p>
<p>If you did not request a password reset, you can safely ignore this email.</p>`,
		},
	},
	LocaleFR: {
		confirmation: emailTemplate{
			subject: "Confirmez votre compte",
			body: `<p>Bonjour %s,</p>
<p>Merci pour votre inscription. Veuillez confirmer votre compte en cliquant sur le lien ci-dessous :</p>
<p><a href="%s">Confirmer mon compte</a></p>
<p>Si vous n'avez pas cr&eacute;&eacute; ce compte, vous pouvez ignorer cet email.</p>`,
		},
		reset: emailTemplate{
			subject: "R&eacute;initialisez votre mot de passe",
			body: `<p>Bonjour %s,</p>
<p>Nous avons re&ccedil;u une demande de r&eacute;initialisation de votre mot de passe. Cliquez sur le lien ci-dessous pour en choisir un nouveau :</p>
<p><a href="%s">R&eacute;initialiser mon mot de passe</a></p>
<p>Si vous n'&ecirc;tes pas &agrave; l'origine de cette demande, vous pouvez ignorer cet email.</p>`,
		},
	},
}

func templateFor(locale Locale) templateSet {
	if set, ok := templates[locale]; ok {
		return set
	}
	return templates[LocaleEN]
}
