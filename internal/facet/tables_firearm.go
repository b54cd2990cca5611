package facet

// Caliber rules run most-specific first so "300 BLK" never falls through to
// a bare number.
var caliberTable = Table{
	R(`\b300\s*(?:AAC\s*)?(?:BLK|BLACKOUT)\b`, "300 BLK"),
	R(`\b300\s*WIN(?:CHESTER)?\s*MAG(?:NUM)?\b|\b300\s*WM\b`, "300 Win Mag"),
	R(`\b300\s*PRC\b`, "300 PRC"),
	R(`\b300\s*WSM\b`, "300 WSM"),
	R(`\b6\.5\s*(?:MM\s*)?(?:CREEDMOOR|CREED|CM)\b`, "6.5 Creedmoor"),
	R(`\b6\.5\s*PRC\b`, "6.5 PRC"),
	R(`\b6\.5\s*GRENDEL\b`, "6.5 Grendel"),
	R(`\b6\.8\s*(?:SPC|REM)\b`, "6.8 SPC"),
	R(`\b223\s*WYLDE\b`, "223 Wylde"),
	R(`\b5\.56(?:\s*X\s*45)?(?:\s*(?:MM|NATO))?\b`, "5.56 NATO"),
	R(`\b223\s*(?:REM(?:INGTON)?)?\b`, "223 Remington"),
	R(`\b22-250\b`, "22-250 Remington"),
	R(`\b7\.62\s*X\s*39\b`, "7.62x39"),
	R(`\b7\.62\s*X\s*54R?\b`, "7.62x54R"),
	R(`\b7\.62\s*X\s*51\b`, "7.62x51 NATO"),
	R(`\b308\s*(?:WIN(?:CHESTER)?)?\b`, "308 Winchester"),
	R(`\b30-06\b|\b30\s*-?\s*06\s*SPR`, "30-06 Springfield"),
	R(`\b30-30\b`, "30-30 Winchester"),
	R(`\b270\s*WIN(?:CHESTER)?\b|\b270\b`, "270 Winchester"),
	R(`\b243\s*WIN(?:CHESTER)?\b|\b243\b`, "243 Winchester"),
	R(`\b7\s*MM\s*(?:REM(?:INGTON)?\s*)?MAG(?:NUM)?\b|\b7MM\s*RM\b`, "7mm Rem Mag"),
	R(`\b7MM-08\b`, "7mm-08 Remington"),
	R(`\b338\s*(?:LAPUA|LAP)\b`, "338 Lapua"),
	R(`\b350\s*LEGEND\b`, "350 Legend"),
	R(`\b450\s*BUSHMASTER\b|\b450\s*BM\b`, "450 Bushmaster"),
	R(`\b45-70\b`, "45-70 Government"),
	R(`\b50\s*BMG\b`, "50 BMG"),
	R(`\b17\s*HMR\b`, "17 HMR"),
	R(`\b22\s*(?:WMR|MAG(?:NUM)?)\b`, "22 WMR"),
	R(`\b22\s*(?:LR|L\.R\.|LONG\s*RIFLE)\b`, "22 LR"),
	R(`\b5\.7\s*X\s*28(?:\s*MM)?\b`, "5.7x28mm"),
	R(`\b30\s*SUPER\s*CARRY\b`, "30 Super Carry"),
	R(`\b357\s*SIG\b`, "357 SIG"),
	R(`\b357\s*(?:MAG(?:NUM)?)?\b`, "357 Magnum"),
	R(`\b38\s*SUPER\b`, "38 Super"),
	R(`\b38\s*(?:SPL|SPECIAL|SPEC)\b`, "38 Special"),
	R(`\b44\s*(?:SPL|SPECIAL)\b`, "44 Special"),
	R(`\b44\s*(?:REM\s*)?MAG(?:NUM)?\b`, "44 Magnum"),
	R(`\b45\s*(?:LC|LONG\s*COLT|COLT)\b`, "45 Colt"),
	R(`\b45\s*(?:ACP|AUTO)\b`, "45 ACP"),
	R(`\b40\s*(?:S&W|SW|CAL)\b`, "40 S&W"),
	R(`\b10\s*MM\b`, "10mm"),
	R(`\b9\s*MM(?:\s*(?:LUGER|PARA))?\b|\b9X19\b|\b9\s*LUGER\b`, "9mm"),
	R(`\.380\b|\b380\s*(?:ACP|AUTO)\b`, "380 ACP"),
	R(`\b32\s*ACP\b`, "32 ACP"),
	R(`\b25\s*ACP\b`, "25 ACP"),
	R(`\b(12|20|16|28|10)\s*(?:GA|GAUGE)\b`, "${1} Gauge"),
	R(`\.410\b|\b410\s*(?:GA|GAUGE|BORE)\b`, "410 Bore"),
}

var barrelLengthTable = Table{
	R(`\b(\d{1,2}(?:\.\d{1,3})?)\s*(?:"|''|IN\b|INCH(?:ES)?\b)`, `${1}"`),
	R(`\b(\d{1,2}(?:\.\d{1,3})?)\s*(?:BBL|BARREL)\b`, `${1}"`),
}

var handgunFrameTable = Table{
	R(`\bMICRO\s*-?\s*(?:COMPACT|CMPCT)?\b`, "Micro Compact"),
	R(`\bSUB\s*-?\s*(?:COMPACT|COMP|CMPCT)\b|\bSC\b`, "Subcompact"),
	R(`\bCOMPACT\b|\bCMPCT\b|\bCPT\b|\bCARRY\b`, "Compact"),
	R(`\bFULL\s*-?\s*SIZE\b|\bFULLSIZE\b|\bFS\b`, "Full Size"),
	R(`\bP365\b|\bHELLCAT\b|\bLCP\b|\bMAX-?9\b`, "Micro Compact"),
	R(`\b(?:GLOCK|G)\s*(?:26|27|33|39|42|43X?|48)\b`, "Subcompact"),
	R(`\b(?:GLOCK|G)\s*(?:19|23|32|38|45)\b`, "Compact"),
	R(`\b(?:GLOCK|G)\s*(?:17|20|21|22|31|34|35|40|41)\b|\b1911\b`, "Full Size"),
}

var rifleFrameTable = Table{
	R(`\bBULL\s*-?\s*PUP\b`, "Bullpup"),
	R(`\bPRECISION\b|\bPRS\b|\bSNIPER\b|\bLONG\s*RANGE\b`, "Precision"),
	R(`\bCARBINE\b|\bCARB\b`, "Carbine"),
	R(`\bSCOUT\b`, "Scout"),
	R(`\bTAKE\s*-?\s*DOWN\b`, "Takedown"),
	R(`\bYOUTH\b|\bCOMPACT\b`, "Compact"),
	R(`\bVARMINT\b`, "Varmint"),
	R(`\bTACTICAL\b|\bTAC\b`, "Tactical"),
	R(`\bHUNTER\b|\bHUNTING\b`, "Hunting"),
	R(`\b16(?:\.\d+)?\s*(?:"|IN\b)`, "Carbine"),
}

var shotgunFrameTable = Table{
	R(`\bYOUTH\b|\bCOMPACT\b|\bBANTAM\b`, "Compact"),
	R(`\bTACTICAL\b|\bTAC\b|\bDEFENSE\b`, "Tactical"),
	R(`\bTURKEY\b`, "Turkey"),
	R(`\bSPORTING\b|\bTRAP\b|\bSKEET\b`, "Sporting"),
	R(`\bFIELD\b`, "Field"),
}

var handgunActionTable = Table{
	R(`\bSTRIKER\s*-?\s*(?:FIRED)?\b`, "Striker Fired"),
	R(`\bDA\s*/\s*SA\b|\bTDA\b`, "DA/SA"),
	R(`\bDAO\b|\bDOUBLE\s*ACTION\s*ONLY\b`, "Double Action Only"),
	R(`\bSAO\b|\bSINGLE\s*ACTION\b`, "Single Action"),
	R(`\bREVOLVER\b`, "Revolver"),
	R(`\bDOUBLE\s*ACTION\b`, "Double Action"),
	R(`\bGLOCK\b|\bM&P\b|\bP320\b|\bP365\b|\bHELLCAT\b|\bXD(?:S|M|E)?\b`, "Striker Fired"),
	R(`\b1911\b`, "Single Action"),
	R(`\bSEMI\s*-?\s*AUTO\b|\bPISTOL\b`, "Semi-Auto"),
}

var longGunActionTable = Table{
	R(`\bFULL\s*-?\s*AUTO\b|\bSELECT\s*-?\s*FIRE\b`, "Automatic"),
	R(`\bSTRAIGHT\s*-?\s*PULL\b`, "Straight Pull"),
	R(`\bBOLT\s*-?\s*ACTION\b|\bBOLT\b`, "Bolt Action").Except(`\bBOLT\s*CARRIER\b|\bBCG\b`),
	R(`\bLEVER\s*-?\s*(?:ACTION)?\b`, "Lever Action"),
	R(`\bPUMP\s*-?\s*(?:ACTION)?\b`, "Pump Action"),
	R(`\bSINGLE\s*-?\s*SHOT\b|\bBREAK\s*-?\s*ACTION\b`, "Single Shot"),
	R(`\bSIDE\s*BY\s*SIDE\b|\bSXS\b|\bOVER\s*/?\s*UNDER\b|\bO/U\b`, "Double Barrel"),
	R(`\b(?:REMINGTON|REM)\s*870\b|\bMOSSBERG\s*(?:500|590)\b|\bNOVA\b`, "Pump Action"),
	R(`\b(?:REMINGTON|REM)\s*700\b|\bSAVAGE\s*11[01]\b|\bTIKKA\b|\bBERGARA\b`, "Bolt Action"),
	R(`\bSEMI\s*-?\s*(?:AUTO(?:MATIC)?)?\b|\bAUTOLOADER\b|\bAR-?15\b|\bAR-?10\b|\bAK-?47\b|\bM4\b|\bGAS\s*(?:OPERATED|PISTON)\b`, "Semi-Auto"),
}

var capacityTable = Table{
	R(`\b(\d{1,3})\s*\+\s*1\b`, "${1}+1"),
	R(`\b(\d{1,3})\s*-?\s*(?:RD|RDS|ROUND|ROUNDS|SHOT)\b`, "${1} Round"),
}
