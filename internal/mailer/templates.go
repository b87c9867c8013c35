package mailer

import "fmt"

const (
	SubjectVerification  = "Your Verification Code"
	SubjectPasswordReset = "Password Reset Request"
)

// VerificationEmail renders the HTML body carrying the 5-digit OTP.
func VerificationEmail(code int) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
  <body style="margin:0;padding:0;background-color:#f4f4f7;font-family:Arial,Helvetica,sans-serif;">
    <table role="presentation" width="100%%" cellpadding="0" cellspacing="0">
      <tr>
        <td align="center" style="padding:32px 16px;">
          <table role="presentation" width="480" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;padding:32px;">
            <tr>
              <td align="center" style="color:#333333;">
                <h2 style="margin:0 0 16px;">Verify your email</h2>
                <p style="margin:0 0 24px;color:#555555;">
                  Use the verification code below to complete your registration.
                  It expires in 10 minutes.
                </p>
                <p style="font-size:32px;letter-spacing:8px;font-weight:bold;margin:0 0 24px;color:#111111;">%d</p>
                <p style="margin:0;color:#999999;font-size:12px;">
                  If you did not create an account, you can safely ignore this email.
                </p>
              </td>
            </tr>
          </table>
        </td>
      </tr>
    </table>
  </body>
</html>`, code)
}

// ResetPasswordEmail renders the HTML body carrying the reset link.
func ResetPasswordEmail(resetURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
  <body style="margin:0;padding:0;background-color:#f4f4f7;font-family:Arial,Helvetica,sans-serif;">
    <table role="presentation" width="100%%" cellpadding="0" cellspacing="0">
      <tr>
        <td align="center" style="padding:32px 16px;">
          <table role="presentation" width="480" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;padding:32px;">
            <tr>
              <td align="center" style="color:#333333;">
                <h2 style="margin:0 0 16px;">Reset your password</h2>
                <p style="margin:0 0 24px;color:#555555;">
                  You requested a password reset. Click the button below to set
                  a new password. This link expires in 15 minutes.
                </p>
                <p style="margin:0 0 24px;">
                  <a href="%s" style="background:#2563eb;color:#ffffff;text-decoration:none;padding:12px 24px;border-radius:6px;display:inline-block;">Reset Password</a>
                </p>
                <p style="margin:0;color:#999999;font-size:12px;">
                  If you did not request this, please ignore this email.
                </p>
              </td>
            </tr>
          </table>
        </td>
      </tr>
    </table>
  </body>
</html>`, resetURL)
}
