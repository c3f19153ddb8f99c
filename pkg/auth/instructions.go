package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowAppKeyGuide explains where the four OAuth values come from
func ShowAppKeyGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "PLURK API CREDENTIALS")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "This tool reads public timelines through the Plurk API 2.0, which")
	fmt.Fprintln(w, "requires an OAuth application.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 1: Register an application")
	fmt.Fprintln(w, "   - Log in and open https://www.plurk.com/PlurkApp/")
	fmt.Fprintln(w, "   - Create a new app; any name and description will do")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 2: Copy the app key pair")
	fmt.Fprintln(w, "   - App Key    -> consumer key")
	fmt.Fprintln(w, "   - App Secret -> consumer secret")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 3 (optional): Generate an access token")
	fmt.Fprintln(w, "   - Use the app's test console to create a token and secret")
	fmt.Fprintln(w, "   - Public timelines work without one; leave them empty to skip")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The values can also be supplied as CONSUMER_KEY, CONSUMER_SECRET,")
	fmt.Fprintln(w, "ACCESS_TOKEN and ACCESS_TOKEN_SECRET in the environment or a .env file.")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
}
