package login

import (
	"net/http"

	"github.com/2beens/clientportal/pkg"
)

const (
	MsgUnknownEmail   = "❌ Authentication Failed: Unknown email address"
	MsgWrongPassword  = "❌ Authentication Failed: Incorrect password"
	MsgInvalidOTP     = "❌ Invalid OTP. Please try again."
	MsgMissingFields  = "Please enter your email and password."
	MsgMissingOTP     = "Please enter the 6-digit OTP."
	MsgNoPendingLogin = "Your sign in has expired. Please enter your credentials again."
	MsgUnavailable    = "Service is temporarily unavailable. Please try again."
)

// Banner is the inline error shown above the login form.
type Banner struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type bannerResponse struct {
	Error Banner `json:"error"`
}

func writeBanner(w http.ResponseWriter, statusCode int, code, message string) {
	pkg.WriteJSON(w, statusCode, bannerResponse{
		Error: Banner{Code: code, Message: message},
	})
}
