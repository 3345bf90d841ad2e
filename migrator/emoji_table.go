package migrator

// emojiShortcodes maps emoji short names to their Unicode code points, as
// hyphen separated hex. Rocket.Chat shortcodes not listed here are skipped
// with a warning. Regenerate a complete table with tools/emoji_generator.go.
var emojiShortcodes = map[string]string{
	"+1": "1f44d",
	"-1": "1f44e",
	"100": "1f4af",
	"airplane": "2708-fe0f",
	"alarm_clock": "23f0",
	"alien": "1f47d",
	"angry": "1f620",
	"anguished": "1f627",
	"apple": "1f34e",
	"arrow_down": "2b07-fe0f",
	"arrow_left": "2b05-fe0f",
	"arrow_right": "27a1-fe0f",
	"arrow_up": "2b06-fe0f",
	"astonished": "1f632",
	"balloon": "1f388",
	"ballot_box_with_check": "2611",
	"bangbang": "203c-fe0f",
	"bar_chart": "1f4ca",
	"basketball": "1f3c0",
	"beaver": "1f9ab",
	"bee": "1f41d",
	"beer": "1f37a",
	"beers": "1f37b",
	"bell": "1f514",
	"birthday": "1f382",
	"bison": "1f9ac",
	"black_circle": "26ab",
	"black_heart": "1f5a4",
	"blue_heart": "1f499",
	"blush": "1f60a",
	"book": "1f4d6",
	"bookmark": "1f516",
	"books": "1f4da",
	"boom": "1f4a5",
	"boomerang": "1fa83",
	"brain": "1f9e0",
	"broken_heart": "1f494",
	"brown_heart": "1f90e",
	"bubbles": "1fae7",
	"bug": "1f41b",
	"bulb": "1f4a1",
	"cactus": "1f335",
	"cake": "1f370",
	"calendar": "1f4c6",
	"call_me": "1f919",
	"car": "1f697",
	"cat": "1f431",
	"chart_with_downwards_trend": "1f4c9",
	"chart_with_upwards_trend": "1f4c8",
	"checkered_flag": "1f3c1",
	"clap": "1f44f",
	"clown": "1f921",
	"cockroach": "1fab3",
	"coffee": "2615",
	"coin": "1fa99",
	"cold_sweat": "1f630",
	"collision": "1f4a5",
	"computer": "1f4bb",
	"confetti_ball": "1f38a",
	"confounded": "1f616",
	"confused": "1f615",
	"cookie": "1f36a",
	"cool": "1f192",
	"cowboy": "1f920",
	"crossed_fingers": "1f91e",
	"cry": "1f622",
	"dart": "1f3af",
	"dash": "1f4a8",
	"disappointed": "1f61e",
	"disappointed_relieved": "1f625",
	"dizzy_face": "1f635",
	"dodo": "1f9a4",
	"dog": "1f436",
	"earth_africa": "1f30d",
	"email": "2709-fe0f",
	"envelope": "2709-fe0f",
	"exclamation": "2757",
	"exploding_head": "1f92f",
	"expressionless": "1f611",
	"eye": "1f441",
	"eyes": "1f440",
	"facepalm": "1f926",
	"fearful": "1f628",
	"feather": "1fab6",
	"fire": "1f525",
	"fist": "270a",
	"flushed": "1f633",
	"fly": "1fab0",
	"four_leaf_clover": "1f340",
	"fox": "1f98a",
	"free": "1f193",
	"frowning": "1f626",
	"gear": "2699",
	"ghost": "1f47b",
	"gift": "1f381",
	"globe_with_meridians": "1f310",
	"green_heart": "1f49a",
	"grey_question": "2754",
	"grimacing": "1f62c",
	"grin": "1f601",
	"grinning": "1f600",
	"hammer": "1f528",
	"hamsa": "1faac",
	"handshake": "1f91d",
	"hankey": "1f4a9",
	"headphones": "1f3a7",
	"hear_no_evil": "1f649",
	"heart": "2764-fe0f",
	"heart_eyes": "1f60d",
	"heart_hands": "1faf6",
	"heavy_check_mark": "2714-fe0f",
	"heavy_minus_sign": "2796",
	"heavy_plus_sign": "2795",
	"hourglass": "231b",
	"house": "1f3e0",
	"hugging": "1f917",
	"hugs": "1f917",
	"hushed": "1f62f",
	"inbox_tray": "1f4e5",
	"innocent": "1f607",
	"interrobang": "2049-fe0f",
	"iphone": "1f4f1",
	"joy": "1f602",
	"key": "1f511",
	"kissing_heart": "1f618",
	"large_blue_circle": "1f535",
	"laughing": "1f606",
	"link": "1f517",
	"lock": "1f512",
	"lotus": "1fab7",
	"loudspeaker": "1f4e2",
	"lying_face": "1f925",
	"mag": "1f50d",
	"magic_wand": "1fa84",
	"mammoth": "1f9a3",
	"mask": "1f637",
	"medal": "1f3c5",
	"mega": "1f4e3",
	"melting_face": "1fae0",
	"memo": "1f4dd",
	"metal": "1f918",
	"money_mouth": "1f911",
	"moneybag": "1f4b0",
	"monkey": "1f412",
	"muscle": "1f4aa",
	"musical_note": "1f3b5",
	"nauseated_face": "1f922",
	"nerd": "1f913",
	"nesting_dolls": "1fa86",
	"neutral_face": "1f610",
	"new": "1f195",
	"no_entry": "26d4",
	"no_mouth": "1f636",
	"notes": "1f3b6",
	"office": "1f3e2",
	"ok": "1f197",
	"ok_hand": "1f44c",
	"open_hands": "1f450",
	"open_mouth": "1f62e",
	"orange_heart": "1f9e1",
	"outbox_tray": "1f4e4",
	"owl": "1f989",
	"package": "1f4e6",
	"panda_face": "1f43c",
	"paperclip": "1f4ce",
	"partying_face": "1f973",
	"pencil": "1f4dd",
	"penguin": "1f427",
	"pensive": "1f614",
	"persevere": "1f623",
	"pinata": "1fa85",
	"pizza": "1f355",
	"pleading_face": "1f97a",
	"point_down": "1f447",
	"point_left": "1f448",
	"point_right": "1f449",
	"point_up": "261d-fe0f",
	"point_up_2": "1f446",
	"poop": "1f4a9",
	"pray": "1f64f",
	"punch": "1f44a",
	"purple_heart": "1f49c",
	"pushpin": "1f4cc",
	"question": "2753",
	"rage": "1f621",
	"rainbow": "1f308",
	"raised_hand": "270b",
	"raised_hands": "1f64c",
	"recycle": "267b-fe0f",
	"red_circle": "1f534",
	"relieved": "1f60c",
	"repeat": "1f501",
	"robot": "1f916",
	"rock": "1faa8",
	"rocket": "1f680",
	"rofl": "1f923",
	"rolling_eyes": "1f644",
	"rose": "1f339",
	"saluting_face": "1fae1",
	"satisfied": "1f606",
	"scream": "1f631",
	"seal": "1f9ad",
	"see_no_evil": "1f648",
	"seedling": "1f331",
	"shrug": "1f937",
	"skull": "1f480",
	"sleeping": "1f634",
	"sleepy": "1f62a",
	"slight_frown": "1f641",
	"slight_smile": "1f642",
	"slightly_smiling_face": "1f642",
	"smile": "1f604",
	"smiley": "1f603",
	"smiling_face_with_tear": "1f972",
	"smirk": "1f60f",
	"snake": "1f40d",
	"sneezing_face": "1f927",
	"snowflake": "2744-fe0f",
	"sob": "1f62d",
	"soccer": "26bd",
	"sos": "1f198",
	"sparkles": "2728",
	"sparkling_heart": "1f496",
	"speak_no_evil": "1f64a",
	"speech_balloon": "1f4ac",
	"star": "2b50",
	"star2": "1f31f",
	"star_struck": "1f929",
	"stuck_out_tongue": "1f61b",
	"stuck_out_tongue_winking_eye": "1f61c",
	"sunflower": "1f33b",
	"sunglasses": "1f60e",
	"sunny": "2600-fe0f",
	"sweat": "1f613",
	"sweat_drops": "1f4a6",
	"sweat_smile": "1f605",
	"tada": "1f389",
	"teddy_bear": "1f9f8",
	"telephone_receiver": "1f4de",
	"thinking": "1f914",
	"thinking_face": "1f914",
	"thought_balloon": "1f4ad",
	"thumbsdown": "1f44e",
	"thumbsup": "1f44d",
	"tired_face": "1f62b",
	"triangular_flag_on_post": "1f6a9",
	"triumph": "1f624",
	"trophy": "1f3c6",
	"tulip": "1f337",
	"turtle": "1f422",
	"two_hearts": "1f495",
	"umbrella": "2614",
	"unamused": "1f612",
	"unicorn": "1f984",
	"upside_down": "1f643",
	"v": "270c-fe0f",
	"video_game": "1f3ae",
	"warning": "26a0-fe0f",
	"watch": "231a",
	"wave": "1f44b",
	"weary": "1f629",
	"white_check_mark": "2705",
	"white_circle": "26aa",
	"white_heart": "1f90d",
	"wine_glass": "1f377",
	"wink": "1f609",
	"wood": "1fab5",
	"worm": "1fab1",
	"worried": "1f61f",
	"wrench": "1f527",
	"x": "274c",
	"yawning_face": "1f971",
	"yellow_heart": "1f49b",
	"yum": "1f60b",
	"zap": "26a1",
	"zipper_mouth": "1f910",
	"zzz": "1f4a4",
}
