package sshd

// welcomeBanner greets new sessions and doubles as the help text.
var welcomeBanner = []byte("=====================================\r\n" +
	"|=========== RETRO  WEB ============|\r\n" +
	"|========== *ssh edition* ==========|\r\n" +
	"|===================================|\r\n" +
	"|Welcome to the terminal version of |\r\n" +
	"|this website! Everything here is   |\r\n" +
	"|served over plain old protocols.   |\r\n" +
	"|===================================|\r\n" +
	"|To navigate, use the 'ls' and 'cd' |\r\n" +
	"|commands to see the available pages|\r\n" +
	"|and 'cat' or 'vi' to view them.    |\r\n" +
	"|Use 'msg' to leave me a message.   |\r\n" +
	"|Type 'exit' or 'logout' to leave.  |\r\n" +
	"=====================================\r\n")
