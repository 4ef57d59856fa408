package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const (
	// SubjectOTP is the verification email subject.
	SubjectOTP = "Verify Your Email - VoxScribe"
	// SubjectWelcome is the welcome email subject.
	SubjectWelcome = "Welcome to VoxScribe!"
)

var otpTemplate = template.Must(template.New("otp").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f8f9fa;">
  <div style="background: #3b82f6; padding: 30px; border-radius: 10px; text-align: center; margin-bottom: 20px;">
    <h1 style="color: white; margin: 0; font-size: 28px;">VoxScribe</h1>
    <p style="color: #e2e8f0; margin: 10px 0 0 0; font-size: 16px;">Email Verification</p>
  </div>
  <div style="background: white; padding: 30px; border-radius: 10px;">
    <h2 style="color: #1e293b; margin: 0 0 20px 0;">Hello {{.Name}}!</h2>
    <p style="color: #64748b; font-size: 16px; line-height: 1.6; margin: 0 0 20px 0;">
      Thank you for signing up with VoxScribe! To complete your registration, please verify your email address using the code below:
    </p>
    <div style="background: #f1f5f9; padding: 20px; border-radius: 8px; text-align: center; margin: 20px 0;">
      <h3 style="color: #1e293b; margin: 0 0 10px 0; font-size: 24px;">Your Verification Code</h3>
      <div style="background: #3b82f6; color: white; font-size: 32px; font-weight: bold; padding: 15px 30px; border-radius: 8px; letter-spacing: 5px; display: inline-block;">{{.Code}}</div>
    </div>
    <p style="color: #64748b; font-size: 14px; margin: 20px 0 0 0;">
      This code will expire in {{.ExpiresIn}}. If you didn't request this verification, please ignore this email.
    </p>
  </div>
  <div style="text-align: center; margin-top: 20px; color: #94a3b8; font-size: 12px;">
    <p>&copy; {{.Year}} VoxScribe. All rights reserved.</p>
  </div>
</div>`))

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f8f9fa;">
  <div style="background: #10b981; padding: 30px; border-radius: 10px; text-align: center; margin-bottom: 20px;">
    <h1 style="color: white; margin: 0; font-size: 28px;">Welcome to VoxScribe!</h1>
    <p style="color: #d1fae5; margin: 10px 0 0 0; font-size: 16px;">Your account is now verified</p>
  </div>
  <div style="background: white; padding: 30px; border-radius: 10px;">
    <h2 style="color: #1e293b; margin: 0 0 20px 0;">Hello {{.Name}}!</h2>
    <p style="color: #64748b; font-size: 16px; line-height: 1.6; margin: 0 0 20px 0;">
      Congratulations! Your email has been successfully verified. You can now access all the features of VoxScribe:
    </p>
    <ul style="color: #64748b; font-size: 16px; line-height: 1.8; margin: 0 0 20px 0; padding-left: 20px;">
      <li>Upload audio files for transcription</li>
      <li>View your transcription history</li>
      <li>Manage your profile and settings</li>
    </ul>
    {{if .HomeURL}}<div style="text-align: center; margin: 30px 0;">
      <a href="{{.HomeURL}}" style="background: #3b82f6; color: white; padding: 15px 30px; text-decoration: none; border-radius: 8px; font-weight: bold; display: inline-block;">Get Started Now</a>
    </div>{{end}}
  </div>
  <div style="text-align: center; margin-top: 20px; color: #94a3b8; font-size: 12px;">
    <p>&copy; {{.Year}} VoxScribe. All rights reserved.</p>
  </div>
</div>`))

// RenderOTP renders the verification email body.
func RenderOTP(name, code string, expiresAt time.Time) (string, error) {
	expiresIn := time.Until(expiresAt).Round(time.Minute)
	if expiresIn <= 0 {
		expiresIn = time.Minute
	}
	var buf bytes.Buffer
	err := otpTemplate.Execute(&buf, map[string]any{
		"Name":      name,
		"Code":      code,
		"ExpiresIn": formatDuration(expiresIn),
		"Year":      time.Now().Year(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render otp email: %w", err)
	}
	return buf.String(), nil
}

// RenderWelcome renders the welcome email body. homeURL may be empty.
func RenderWelcome(name, homeURL string) (string, error) {
	var buf bytes.Buffer
	err := welcomeTemplate.Execute(&buf, map[string]any{
		"Name":    name,
		"HomeURL": homeURL,
		"Year":    time.Now().Year(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render welcome email: %w", err)
	}
	return buf.String(), nil
}

func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
