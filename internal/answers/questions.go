package answers

// QuestionTable maps the packaged questionnaire's question numbers to the
// question text shown on the IRCC portal.
var QuestionTable = map[int]string{
	1:  "What is your family name (surname)?",
	2:  "What is your given name?",
	3:  "What is your sex?",
	4:  "What is your date of birth?",
	5:  "What country were you born in?",
	6:  "What city or town were you born in?",
	7:  "What is your country of citizenship?",
	8:  "What is your current country of residence?",
	9:  "What is your current marital status?",
	10: "What is your preferred language of correspondence?",
	11: "What is your email address?",
	12: "What is your telephone number?",
	13: "What is your current mailing address?",
	14: "What country issued your passport?",
	15: "What is your passport number?",
	16: "What is the issue date of your passport?",
	17: "What is the expiry date of your passport?",
	18: "Do you have a valid national identity document?",
	19: "What is the highest level of education you have completed?",
	20: "What is your current occupation?",
	21: "Who is your current employer?",
	22: "What is the purpose of your visit to Canada?",
	23: "How long do you plan to stay in Canada?",
	24: "What is the name of the designated learning institution you will attend?",
	25: "How much money do you have available for your stay in Canada?",
	26: "Have you ever been refused a visa or permit to Canada or any other country?",
	27: "Have you previously applied to enter or remain in Canada?",
	28: "Have you ever been convicted of a crime or offence in any country?",
	29: "Have you had a medical exam by an IRCC panel physician in the last 12 months?",
	30: "Do you have family members living in Canada?",
	31: "Have you ever served in any military, militia or civil defence unit?",
	32: "Have you taken an English or French language test?",
}
